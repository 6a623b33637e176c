package model

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrValidation is wrapped by every input validation failure.
var ErrValidation = errors.New("validation failed")

// CatchInput is what a user submits when registering a catch.
type CatchInput struct {
	Species      string   `json:"species" validate:"required"`
	Weight       float64  `json:"weight" validate:"gte=0"`
	Length       *float64 `json:"length,omitempty" validate:"omitempty,gte=0"`
	Location     string   `json:"location,omitempty"`
	TournamentID *string  `json:"tournamentId,omitempty"`
}

// TournamentInput is what a user submits when creating a tournament.
type TournamentInput struct {
	Name            string   `json:"name" validate:"required"`
	Description     string   `json:"description,omitempty"`
	StartDate       string   `json:"startDate" validate:"required"`
	EndDate         string   `json:"endDate" validate:"required"`
	MaxParticipants int      `json:"maxParticipants" validate:"gte=2"`
	EntryFee        *float64 `json:"entryFee,omitempty" validate:"omitempty,gte=0"`
	PrizePool       *float64 `json:"prizePool,omitempty" validate:"omitempty,gte=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks the catch input before any network call is attempted.
func (in CatchInput) Validate() error {
	in.Species = strings.TrimSpace(in.Species)
	return validateStruct(in)
}

// Validate checks the tournament input, including that the window is
// well-formed.
func (in TournamentInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return err
	}
	start, err := ParseTime(in.StartDate)
	if err != nil {
		return fmt.Errorf("%w: startDate is not a valid date", ErrValidation)
	}
	end, err := ParseTime(in.EndDate)
	if err != nil {
		return fmt.Errorf("%w: endDate is not a valid date", ErrValidation)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: endDate must be after startDate", ErrValidation)
	}
	return nil
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fe.Field()+" "+friendlyMessage(fe))
	}
	sort.Strings(messages)
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(messages, "; "))
}

func friendlyMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	default:
		return "is invalid"
	}
}
