package domain

type ClientType string

const (
	ClientPerson  ClientType = "pessoa"
	ClientCompany ClientType = "empresa"
)

// AgeRanges lists the accepted age brackets for person clients.
var AgeRanges = []string{"<18", "18-24", "25-34", "35-44", "45-54", ">55", "65+"}

var Genders = []string{"Feminino", "Masculino", "Outro"}

type Client struct {
	ID          string     `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Salesperson string     `db:"salesperson" json:"salesperson"`
	Type        ClientType `db:"type" json:"type"`
	AgeRange    string     `db:"age_range" json:"age_range"`
	Gender      string     `db:"gender" json:"gender"`
	Profession  string     `db:"profession" json:"profession"`
	TaxID       string     `db:"tax_id" json:"tax_id"`
	Phone       string     `db:"phone" json:"phone"`
	Address     string     `db:"address" json:"address"`
	CreatedAt   string     `db:"created_at" json:"created_at,omitempty"`
}

func (c Client) IsCompany() bool { return c.Type == ClientCompany }
