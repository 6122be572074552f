package auth

import "github.com/frahmantamala/reimbursement-management/internal/core/common/validation"

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d LoginDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().MaxLength(254)
	v.Field("password", d.Password).Required()

	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

