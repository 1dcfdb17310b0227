package middleware

import (
	"time"

	"crmdesk/internal/leads"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the dashboard's binding tags to gin's validator:
// leadstatus (an update target status) and ymd (a yyyy-mm-dd date).
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("leadstatus", func(fl validator.FieldLevel) bool {
		return leads.IsUpdateStatus(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("ymd", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		_, err := time.Parse(leads.DateLayout, s)
		return err == nil
	})
}
