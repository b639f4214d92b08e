package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/erp/posting/internal/infrastructure/logger"
	"github.com/erp/posting/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const RequestIDKey = "X-Request-ID"

var (
	seriesPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9/-]*$`)
	setupOnce     sync.Once
)

// SetupValidator registers the posting-specific tags on gin's validator and
// makes field errors carry JSON names. decimal.Decimal fields are validated
// by their float value so gt/gte/required apply to amounts.
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		registerValidations(v)
	})
}

func registerValidations(v *validator.Validate) {
	v.RegisterTagNameFunc(jsonFieldName)
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		d, ok := field.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})
	_ = v.RegisterValidation("series", func(fl validator.FieldLevel) bool {
		return seriesPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return len(s) == 3 && strings.ToUpper(s) == s && strings.Trim(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") == ""
	})
}

func jsonFieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		switch name {
		case "-":
			return ""
		case "":
			continue
		default:
			return name
		}
	}
	return fld.Name
}

// HandleValidationError writes a 400 describing every failed field, or an
// INVALID_JSON error when the body could not be decoded at all. Bodies cut
// off by BodyLimit get a 413.
func HandleValidationError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		abortTooLarge(c)
		return
	}
	requestID := RequestIDFromContext(c)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(dto.ErrCodeInvalidJSON, "Request body could not be decoded", requestID))
		return
	}
	details := make([]dto.ValidationDetail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, dto.ValidationDetail{Field: fe.Field(), Message: describe(fe)})
	}
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(details, requestID))
}

// RequestIDFromContext prefers the id assigned by the logging middleware
func RequestIDFromContext(c *gin.Context) string {
	if id := logger.GetRequestID(c.Request.Context()); id != "" {
		return id
	}
	return c.GetHeader(RequestIDKey)
}

func describe(fe validator.FieldError) string {
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return fmt.Sprintf("Must be at least %s%s", fe.Param(), unit)
	case "max":
		return fmt.Sprintf("Must be at most %s%s", fe.Param(), unit)
	case "len":
		return fmt.Sprintf("Must be exactly %s characters", fe.Param())
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "gt":
		return "Must be greater than " + fe.Param()
	case "gte":
		return "Must be greater than or equal to " + fe.Param()
	case "gtfield":
		return "Must be after " + fe.Param()
	case "series":
		return "Series may contain letters, digits, '-' and '/'"
	case "currency":
		return "Must be an upper-case ISO 4217 code"
	default:
		return "Invalid value"
	}
}
