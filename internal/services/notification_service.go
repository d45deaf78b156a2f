package services

import (
	"fmt"
	"strings"
	"time"

	"homeessence/internal/domain"
	"homeessence/internal/repos"
)

// RepurchaseWindow is how many days ahead a repurchase reminder appears.
const RepurchaseWindow = 7

type NotificationService struct {
	Inv     *InventoryService
	Reports *repos.ReportRepo
	Clients *repos.ClientRepo
	Store   *repos.NotificationRepo
	Now     func() time.Time
}

func NewNotificationService(inv *InventoryService, reports *repos.ReportRepo, clients *repos.ClientRepo, store *repos.NotificationRepo) *NotificationService {
	return &NotificationService{Inv: inv, Reports: reports, Clients: clients, Store: store, Now: time.Now}
}

// ProductLineOf maps a sold product name to its product line: exact name or
// alias first, then keyword rules. ok is false for unknown lines.
func ProductLineOf(name string) (domain.ProductLine, bool) {
	n := strings.ToLower(strings.Join(strings.Fields(name), " "))
	if n == "" {
		return domain.ProductLine{}, false
	}
	for _, l := range domain.ProductLines {
		if strings.ToLower(l.Name) == n {
			return l, true
		}
		for _, a := range l.Aliases {
			if a == n {
				return l, true
			}
		}
	}
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(n, w) {
				return true
			}
		}
		return false
	}
	var want string
	switch {
	case has("home spray", "homespray") && !has("refil"):
		want = "Home Spray 300ml"
	case has("difusor") && !has("refil"):
		want = "Difusor de Varetas"
	case has("refil") && has("difusor"):
		want = "Refil Difusor de Varetas"
	case has("refil") && has("home", "spray"):
		want = "Refil Home Spray"
	case has("refil") && has("sabonete"):
		want = "Refil Sabonete Líquido"
	case has("sabonete"):
		want = "Sabonete Líquido"
	case has("essencia", "essência"):
		want = "Essência"
	case has("agua", "água"):
		want = "Água Perfumada"
	case has("vela"):
		want = "Velas Aromáticas"
	case has("kit"):
		want = "Kit Carro"
	default:
		return domain.ProductLine{}, false
	}
	for _, l := range domain.ProductLines {
		if l.Name == want {
			return l, true
		}
	}
	return domain.ProductLine{}, false
}

// LowStock lists products at or below the threshold that were not dismissed.
// Dismissals of products that recovered are forgotten.
func (s *NotificationService) LowStock() ([]domain.Notification, error) {
	products, err := s.Inv.LowStock()
	if err != nil {
		return nil, err
	}
	dismissed, err := s.Store.Dismissed(domain.NotifyLowStock)
	if err != nil {
		return nil, err
	}
	active := make([]string, 0, len(products))
	out := []domain.Notification{}
	for _, p := range products {
		active = append(active, p.Code)
		if dismissed[p.Code] {
			continue
		}
		out = append(out, domain.Notification{
			Kind:    domain.NotifyLowStock,
			Ref:     p.Code,
			Title:   "Critical stock",
			Message: p.Name + " - " + p.Category,
			Detail:  fmt.Sprintf("Only %d unit(s) left", p.Stock),
			Urgency: domain.UrgencyHigh,
		})
	}
	if err := s.Store.Prune(domain.NotifyLowStock, active); err != nil {
		return nil, err
	}
	return out, nil
}

// Repurchase reminds of clients whose last purchase of a product line and
// fragrance should run out within RepurchaseWindow days, or already has.
func (s *NotificationService) Repurchase() ([]domain.Notification, error) {
	rows, err := s.Reports.LastPurchases()
	if err != nil {
		return nil, err
	}
	dismissed, err := s.Store.Dismissed(domain.NotifyRepurchase)
	if err != nil {
		return nil, err
	}
	clients, err := s.Clients.List(repos.ClientFilter{})
	if err != nil {
		return nil, err
	}
	phones := make(map[string]string, len(clients))
	for _, c := range clients {
		phones[c.ID] = c.Phone
	}

	type key struct{ client, line, fragrance string }
	latest := map[key]repos.LastPurchase{}
	var order []key
	for _, r := range rows {
		line, ok := ProductLineOf(r.ProductName)
		if !ok || line.Months(domain.ClientType(r.ClientType)) == 0 {
			continue
		}
		k := key{r.ClientID, line.Name, r.Category}
		prev, seen := latest[k]
		if !seen {
			order = append(order, k)
		}
		if !seen || r.LastDate > prev.LastDate {
			latest[k] = r
		}
	}

	y, m, d := s.Now().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	out := []domain.Notification{}
	for _, k := range order {
		r := latest[k]
		last, err := time.Parse("2006-01-02", r.LastDate)
		if err != nil {
			continue
		}
		ct := domain.ClientType(r.ClientType)
		line, _ := ProductLineOf(k.line)
		due := last.AddDate(0, 0, line.Months(ct)*30)
		days := int(due.Sub(today).Hours() / 24)
		if days > RepurchaseWindow {
			continue
		}
		ref := r.ClientID + "|" + k.line + "|" + k.fragrance
		if dismissed[ref] {
			continue
		}
		n := domain.Notification{
			Kind:       domain.NotifyRepurchase,
			Ref:        ref,
			Title:      "Repurchase reminder",
			Message:    fmt.Sprintf("%s - %s (%s)", r.ClientName, k.line, k.fragrance),
			ClientID:   r.ClientID,
			ClientType: ct,
			Phone:      phones[r.ClientID],
			DaysUntil:  days,
		}
		switch {
		case days < 0:
			n.Urgency = domain.UrgencyMedium
			n.Detail = fmt.Sprintf("Should have run out %d day(s) ago", -days)
		case days == 0:
			n.Urgency = domain.UrgencyMedium
			n.Detail = "Should run out today"
		default:
			n.Urgency = domain.UrgencyLow
			n.Detail = fmt.Sprintf("Should run out in %d day(s)", days)
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *NotificationService) All() (*domain.Notifications, error) {
	low, err := s.LowStock()
	if err != nil {
		return nil, err
	}
	rep, err := s.Repurchase()
	if err != nil {
		return nil, err
	}
	out := &domain.Notifications{
		LowStock:          low,
		RepurchasePerson:  []domain.Notification{},
		RepurchaseCompany: []domain.Notification{},
	}
	for _, n := range rep {
		if n.ClientType == domain.ClientCompany {
			out.RepurchaseCompany = append(out.RepurchaseCompany, n)
		} else {
			out.RepurchasePerson = append(out.RepurchasePerson, n)
		}
	}
	out.Total = len(low) + len(rep)
	return out, nil
}

func (s *NotificationService) Dismiss(kind, ref string) error {
	if kind != domain.NotifyLowStock && kind != domain.NotifyRepurchase {
		return invalid("kind", "unknown notification kind")
	}
	if strings.TrimSpace(ref) == "" {
		return invalid("ref", "missing notification reference")
	}
	return s.Store.Dismiss(kind, ref)
}

func (s *NotificationService) Undismiss(kind, ref string) error {
	return s.Store.Undismiss(kind, ref)
}
