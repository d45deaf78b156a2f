package domain

const (
	NotifyLowStock   = "low_stock"
	NotifyRepurchase = "repurchase"
)

const (
	UrgencyHigh   = "high"
	UrgencyMedium = "medium"
	UrgencyLow    = "low"
)

type Notification struct {
	Kind       string     `json:"kind"`
	Ref        string     `json:"ref"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Detail     string     `json:"detail"`
	Urgency    string     `json:"urgency"`
	ClientID   string     `json:"client_id,omitempty"`
	ClientType ClientType `json:"client_type,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	DaysUntil  int        `json:"days_until"`
}

// Notifications groups the active alerts the way the UI shows them.
type Notifications struct {
	LowStock          []Notification `json:"low_stock"`
	RepurchasePerson  []Notification `json:"repurchase_pessoa"`
	RepurchaseCompany []Notification `json:"repurchase_empresa"`
	Total             int            `json:"total_count"`
}

// ProductLine is a product type with how long it usually lasts, in months,
// for each client type. Zero means the line is not sold to that type.
type ProductLine struct {
	Name    string
	Person  int
	Company int
	Aliases []string
}

func (l ProductLine) Months(t ClientType) int {
	if t == ClientCompany {
		return l.Company
	}
	return l.Person
}

var ProductLines = []ProductLine{
	{Name: "Home Spray 300ml", Person: 6, Company: 2, Aliases: []string{"home spray", "homespray 300ml"}},
	{Name: "Difusor de Varetas", Person: 3, Company: 3, Aliases: []string{"difusor"}},
	{Name: "Essência", Person: 2, Company: 1, Aliases: []string{"essencia"}},
	{Name: "Sabonete Líquido", Person: 2, Company: 1, Aliases: []string{"sabonete liquido"}},
	{Name: "Refil Home Spray", Person: 12, Company: 3, Aliases: []string{"refil homespray"}},
	{Name: "Refil Difusor de Varetas", Person: 6, Company: 6, Aliases: []string{"refil difusor"}},
	{Name: "Refil Sabonete Líquido", Person: 4, Company: 2, Aliases: []string{"refil sabonete liquido"}},
	{Name: "Água Perfumada", Person: 6, Company: 2, Aliases: []string{"agua perfumada"}},
	{Name: "Kit Carro", Person: 6, Aliases: []string{"kit"}},
	{Name: "Velas Aromáticas", Person: 2, Company: 2, Aliases: []string{"velas", "vela aromatica"}},
}
