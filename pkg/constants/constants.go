package constants

import (
	"github.com/go-playground/validator/v10"
)

type ContextKey string

const (
	AppKey       ContextKey = "app"
	LoggerKey    ContextKey = "logger"
	ParamsKey    ContextKey = "params"
	RequestStart ContextKey = "requestStart"
	AuthKey      ContextKey = "auth"
	LocalizerKey ContextKey = "localizer"
	LocaleKey    ContextKey = "locale"
	RequestIDKey ContextKey = "requestID"
)

// Validate is shared by request DTOs and form rules so custom validations are registered once.
var Validate = validator.New(validator.WithRequiredStructEnabled())
