package services

import (
	"database/sql"
	"errors"
	"strings"

	"homeessence/internal/domain"
	"homeessence/internal/repos"
	"homeessence/internal/validate"
)

type ClientService struct {
	Clients *repos.ClientRepo
}

func NewClientService(clients *repos.ClientRepo) *ClientService {
	return &ClientService{Clients: clients}
}

type ClientInput struct {
	Name        string
	Salesperson string
	Type        string
	AgeRange    string
	Gender      string
	Profession  string
	TaxID       string
	Phone       string
	Address     string
}

// normalize applies the per-type rules:
// empresa needs tax id (CNPJ) and address and carries no age or gender;
// pessoa needs an age bracket and a gender, tax id (CPF) optional.
func (in ClientInput) normalize() (*domain.Client, error) {
	name, ok := validate.Name(in.Name)
	if !ok {
		return nil, invalid("name", "name is required")
	}
	c := &domain.Client{
		Name:        name,
		Salesperson: validate.Text(in.Salesperson, 60),
		Profession:  validate.Text(in.Profession, 80),
		Address:     validate.Text(in.Address, 200),
	}

	switch domain.ClientType(strings.ToLower(strings.TrimSpace(in.Type))) {
	case domain.ClientCompany:
		c.Type = domain.ClientCompany
	case domain.ClientPerson, "":
		c.Type = domain.ClientPerson
	default:
		return nil, invalid("type", "type must be pessoa or empresa")
	}

	if c.IsCompany() {
		if strings.TrimSpace(in.TaxID) == "" {
			return nil, invalid("tax_id", "CNPJ is required for companies")
		}
		if c.Address == "" {
			return nil, invalid("address", "address is required for companies")
		}
	} else {
		age, ok := validate.OneOf(in.AgeRange, domain.AgeRanges)
		if !ok {
			return nil, invalid("age_range", "choose an age range")
		}
		gender := validate.Text(in.Gender, 30)
		if gender == "" {
			return nil, invalid("gender", "gender is required")
		}
		c.AgeRange = age
		c.Gender = gender
	}

	if strings.TrimSpace(in.TaxID) != "" {
		tax, err := formatTaxID(in.TaxID, c.Type)
		if err != nil {
			return nil, err
		}
		c.TaxID = tax
	}

	phone, ok := validate.Phone(in.Phone)
	if !ok {
		return nil, invalid("phone", "phone must have area code plus 8 or 9 digits")
	}
	c.Phone = phone
	return c, nil
}

func formatTaxID(raw string, t domain.ClientType) (string, error) {
	if t == domain.ClientCompany {
		d, err := validate.CNPJ(raw)
		switch {
		case errors.Is(err, validate.ErrTaxIDLength):
			return "", invalid("tax_id", "CNPJ must have 14 digits")
		case err != nil:
			return "", invalid("tax_id", "invalid CNPJ")
		}
		return validate.FormatCNPJ(d), nil
	}
	d, err := validate.CPF(raw)
	switch {
	case errors.Is(err, validate.ErrTaxIDLength):
		return "", invalid("tax_id", "CPF must have 11 digits")
	case err != nil:
		return "", invalid("tax_id", "invalid CPF")
	}
	return validate.FormatCPF(d), nil
}

func (s *ClientService) checkTaxIDFree(taxID, selfID string) error {
	if taxID == "" {
		return nil
	}
	other, err := s.Clients.ByTaxID(taxID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if other.ID != selfID {
		return invalid("tax_id", "tax id already registered to "+other.ID)
	}
	return nil
}

// Register validates the input and stores it under the next CLI### id.
func (s *ClientService) Register(in ClientInput) (*domain.Client, error) {
	c, err := in.normalize()
	if err != nil {
		return nil, err
	}
	if err := s.checkTaxIDFree(c.TaxID, ""); err != nil {
		return nil, err
	}
	if err := s.Clients.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ClientService) Update(id string, in ClientInput) (*domain.Client, error) {
	c, err := in.normalize()
	if err != nil {
		return nil, err
	}
	c.ID = id
	if err := s.checkTaxIDFree(c.TaxID, id); err != nil {
		return nil, err
	}
	if err := s.Clients.Update(c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.Get(id)
}

func (s *ClientService) Get(id string) (*domain.Client, error) {
	c, err := s.Clients.Get(id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *ClientService) List(f repos.ClientFilter) ([]domain.Client, error) {
	return s.Clients.List(f)
}

func (s *ClientService) Salespeople() ([]string, error) { return s.Clients.Salespeople() }

// Delete removes the client together with their sales.
func (s *ClientService) Delete(id string) error {
	err := s.Clients.Delete(id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
