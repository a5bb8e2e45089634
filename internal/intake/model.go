package intake

import "errors"

var (
	// ErrMissingContactField indicates a contact submission with a blank required field.
	ErrMissingContactField = errors.New("intake: full name, email, subject and message are required")
	// ErrMissingOrderField indicates an order submission with a blank required field.
	ErrMissingOrderField = errors.New("intake: full name, email and phone are required")
	// ErrNoServicesSelected indicates an order submission without any requested service.
	ErrNoServicesSelected = errors.New("intake: at least one service is required")
	// ErrMissingDonationField indicates a donation submission with a blank required field.
	ErrMissingDonationField = errors.New("intake: full name, email and reason are required")
	// ErrInvalidDonationAmount indicates a non-positive donation amount.
	ErrInvalidDonationAmount = errors.New("intake: donation amount must be positive")
)

// ContactSubmission is a stored contact-form payload.
type ContactSubmission struct {
	ContactID        string `gorm:"column:contact_id;primaryKey;size:190;not null" json:"id"`
	FullName         string `gorm:"column:full_name;size:320;not null" json:"fullName"`
	Email            string `gorm:"column:email;size:320;not null" json:"email"`
	Subject          string `gorm:"column:subject;size:512;not null" json:"subject"`
	Message          string `gorm:"column:message;type:text;not null" json:"message"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null" json:"createdAt"`
}

// TableName provides the explicit table binding for GORM.
func (ContactSubmission) TableName() string {
	return "contacts"
}

// OrderSubmission is a stored project-order payload.
type OrderSubmission struct {
	OrderID            string `gorm:"column:order_id;primaryKey;size:190;not null" json:"id"`
	FullName           string `gorm:"column:full_name;size:320;not null" json:"fullName"`
	Email              string `gorm:"column:email;size:320;not null" json:"email"`
	Phone              string `gorm:"column:phone;size:64;not null" json:"phone"`
	BusinessName       string `gorm:"column:business_name;size:320" json:"businessName"`
	BusinessType       string `gorm:"column:business_type;size:190" json:"businessType"`
	ServicesJSON       string `gorm:"column:services_json;type:text;not null" json:"-"`
	ProjectDescription string `gorm:"column:project_description;type:text" json:"projectDescription"`
	TargetAudience     string `gorm:"column:target_audience;type:text" json:"targetAudience"`
	DesignStyle        string `gorm:"column:design_style;size:190" json:"designStyle"`
	Timeline           string `gorm:"column:timeline;size:190" json:"timeline"`
	BudgetRange        string `gorm:"column:budget_range;size:190" json:"budgetRange"`
	AdditionalNotes    string `gorm:"column:additional_notes;type:text" json:"additionalNotes"`
	CreatedAtSeconds   int64  `gorm:"column:created_at_s;not null" json:"createdAt"`
}

// TableName provides the explicit table binding for GORM.
func (OrderSubmission) TableName() string {
	return "orders"
}

// DonationSubmission is a stored donation payload.
type DonationSubmission struct {
	DonationID       string `gorm:"column:donation_id;primaryKey;size:190;not null" json:"id"`
	FullName         string `gorm:"column:full_name;size:320;not null" json:"fullName"`
	Email            string `gorm:"column:email;size:320;not null" json:"email"`
	Amount           int64  `gorm:"column:amount;not null" json:"amount"`
	Reason           string `gorm:"column:reason;size:512;not null" json:"reason"`
	Message          string `gorm:"column:message;type:text" json:"message"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null" json:"createdAt"`
}

// TableName provides the explicit table binding for GORM.
func (DonationSubmission) TableName() string {
	return "donations"
}

// ContactRequest carries the contact form fields before validation.
type ContactRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
}

// OrderRequest carries the order form fields before validation.
type OrderRequest struct {
	FullName           string   `json:"fullName"`
	Email              string   `json:"email"`
	Phone              string   `json:"phone"`
	BusinessName       string   `json:"businessName"`
	BusinessType       string   `json:"businessType"`
	Services           []string `json:"services"`
	ProjectDescription string   `json:"projectDescription"`
	TargetAudience     string   `json:"targetAudience"`
	DesignStyle        string   `json:"designStyle"`
	Timeline           string   `json:"timeline"`
	BudgetRange        string   `json:"budgetRange"`
	AdditionalNotes    string   `json:"additionalNotes"`
}

// DonationRequest carries the donation form fields before validation.
type DonationRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Amount   int64  `json:"amount"`
	Reason   string `json:"reason"`
	Message  string `json:"message"`
}
