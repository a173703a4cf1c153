package handlers

import "github.com/go-playground/validator"

// validate is shared by all handlers in the package
var validate = validator.New()
