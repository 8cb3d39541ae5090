package shared

import (
	"github.com/go-playground/form"
)

// Decoder binds url.Values (query strings, form posts) onto tagged structs.
var Decoder = form.NewDecoder()

func init() {
	Decoder.SetTagName("form")
}
