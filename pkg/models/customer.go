package models

// Role is the role reported by the login endpoint
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// DisplayName returns the label shown in the profile box
func (r Role) DisplayName() string {
	if r == RoleAdmin {
		return "Administrator"
	}
	return "Customer"
}

// User is the authenticated principal returned by /api/login
type User struct {
	ID   int    `json:"id"`
	Role Role   `json:"role"`
	Name string `json:"name"`
}

// Customer is a directory entry managed by administrators
type Customer struct {
	CustomerID   int    `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	EmailID      string `json:"email_id"`
	PhoneNo      string `json:"phone_no"`
}

// CustomerForm is the body of customer add/edit requests
type CustomerForm struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone"`
}
