package crm

import "encoding/json"

type Category struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Descripcion string `json:"descripcion"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

type CategoryWithAlliedCommerces struct {
	Category
	AlliedCommerces []AlliedCommerce `json:"allied_commerces"`
}

type CategoryWithAlliedCommercesResponse struct {
	Category CategoryWithAlliedCommerces `json:"category"`
}

type Membership struct {
	ID                  int        `json:"id"`
	Nombre              string     `json:"nombre"`
	Descripcion         string     `json:"descripcion"`
	MesesDuracion       int        `json:"meses_duracion"`
	NumeroBeneficiarios int        `json:"numero_beneficiarios"`
	Color               string     `json:"color"`
	PrecioMembresia     float64    `json:"precio_membresia"`
	Categories          []Category `json:"categories,omitempty"`
	CreatedAt           string     `json:"created_at,omitempty"`
	UpdatedAt           string     `json:"updated_at,omitempty"`
}

type PublicMembershipsResponse struct {
	Memberships []Membership `json:"memberships"`
}

// Benefit types carried by Discount.TipoBeneficio.
const (
	BenefitPercentage = "PORCENTAJE"
	BenefitFixedValue = "VALOR_FIJO"
)

type Discount struct {
	ID            int      `json:"id"`
	Nombre        string   `json:"nombre"`
	TipoBeneficio string   `json:"tipo_beneficio"`
	Porcentaje    *float64 `json:"porcentaje"`
	ValorFijo     *float64 `json:"valor_fijo"`
	Descripcion   string   `json:"descripcion"`
	// Condiciones is either a string or an array of strings.
	Condiciones      json.RawMessage `json:"condiciones,omitempty"`
	Activo           bool            `json:"activo"`
	AlliedCommerceID int             `json:"allied_commerce_id"`
	Categories       []Category      `json:"categories,omitempty"`
}

type AlliedCommerceSummary struct {
	ID          int    `json:"id"`
	RazonSocial string `json:"razon_social"`
	Telefono    string `json:"telefono"`
	Descripcion string `json:"descripcion"`
}

type MembershipDiscount struct {
	Discount
	AlliedCommerce AlliedCommerceSummary `json:"allied_commerce"`
}

type MembershipDiscountsResponse struct {
	Discounts []MembershipDiscount `json:"discounts"`
}

type AlliedCommerce struct {
	ID                          int        `json:"id"`
	Code                        string     `json:"code"`
	RazonSocial                 string     `json:"razon_social"`
	Telefono                    string     `json:"telefono"`
	Email                       string     `json:"email"`
	DireccionDomicilioPrincipal string     `json:"direccion_domicilio_principal"`
	Descripcion                 string     `json:"descripcion"`
	Discounts                   []Discount `json:"discounts,omitempty"`
}

type AlliedCommerceResponse struct {
	AlliedCommerce AlliedCommerce `json:"alliedCommerce"`
}

type Lead struct {
	ID              int    `json:"id"`
	Nombre          string `json:"nombre"`
	NumeroDocumento string `json:"numero_documento,omitempty"`
	Email           string `json:"email,omitempty"`
	Telefono        string `json:"telefono"`
	Origen          string `json:"origen"`
	Estado          string `json:"estado"`
	CreatedAt       string `json:"created_at"`
}

// CreateLeadRequest is the POST /leads payload. Blank optional fields are
// omitted from the wire.
type CreateLeadRequest struct {
	Nombre          string `json:"nombre"`
	Telefono        string `json:"telefono"`
	Origen          string `json:"origen"`
	NumeroDocumento string `json:"numero_documento,omitempty"`
	Email           string `json:"email,omitempty"`
}

type CreateLeadResponse struct {
	Message string `json:"message"`
	Lead    Lead   `json:"lead"`
}

type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type SupportLog struct {
	ID                   int    `json:"id"`
	Nombre               string `json:"nombre"`
	NumeroIdentificacion string `json:"numero_identificacion"`
	Email                string `json:"email"`
	Telefono             string `json:"telefono"`
	ClientID             *int   `json:"client_id"`
	UserID               int    `json:"user_id"`
	Handovered           bool   `json:"handovered"`
	Necesidad            string `json:"necesidad"`
	Solucion             string `json:"solucion"`
	Consideraciones      string `json:"consideraciones"`
	CreatedAt            string `json:"created_at"`
	UpdatedAt            string `json:"updated_at"`
	User                 User   `json:"user"`
}

// Page is a Laravel length-aware paginator.
type Page[T any] struct {
	CurrentPage int     `json:"current_page"`
	Data        []T     `json:"data"`
	From        *int    `json:"from"`
	LastPage    int     `json:"last_page"`
	NextPageURL *string `json:"next_page_url"`
	PrevPageURL *string `json:"prev_page_url"`
	PerPage     int     `json:"per_page"`
	To          *int    `json:"to"`
	Total       int     `json:"total"`
}

// SupportLogsQuery filters GET /support_history_logs. Dates use Y-m-d.
type SupportLogsQuery struct {
	NumeroIdentificacion string
	CreatedAtStart       string
	CreatedAtEnd         string
	Page                 int
}

type CreateSupportLogRequest struct {
	NumeroIdentificacion string `json:"numero_identificacion"`
	Nombre               string `json:"nombre,omitempty"`
	Email                string `json:"email,omitempty"`
	Telefono             string `json:"telefono,omitempty"`
	Handovered           bool   `json:"handovered"`
	Necesidad            string `json:"necesidad"`
	Solucion             string `json:"solucion"`
	Consideraciones      string `json:"consideraciones"`
}

// Support log write actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)

type CreateSupportLogResponse struct {
	Message string     `json:"message"`
	Data    SupportLog `json:"data"`
	Action  string     `json:"action"`
}
