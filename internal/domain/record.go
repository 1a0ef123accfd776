package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Record kinds, stored as the partition key.
const (
	KindSchedule = "schedule"
	KindPeriod   = "period"
)

// Record is the persisted shape of a schedule or period. The same shape is
// used by the store, configuration files and configuration dumps.
type Record struct {
	Kind       string   `json:"pk"                     yaml:"pk"                     dynamodbav:"pk"                               validate:"required,oneof=schedule period"`
	Name       string   `json:"sk"                     yaml:"sk"                     dynamodbav:"sk"                               validate:"required,max=256"`
	DaysOfWeek string   `json:"days_of_week,omitempty" yaml:"days_of_week,omitempty" dynamodbav:"days_of_week,omitempty"           validate:"max=128"`
	StartTime  string   `json:"start_time,omitempty"   yaml:"start_time,omitempty"   dynamodbav:"start_time,omitempty"             validate:"omitempty,clock"`
	StopTime   string   `json:"stop_time,omitempty"    yaml:"stop_time,omitempty"    dynamodbav:"stop_time,omitempty"              validate:"omitempty,clock"`
	Periods    []string `json:"periods,omitempty"      yaml:"periods,omitempty"      dynamodbav:"periods,stringset,omitempty"      validate:"dive,required"`
	Timezone   string   `json:"timezone,omitempty"     yaml:"timezone,omitempty"     dynamodbav:"timezone,omitempty"               validate:"omitempty,timezone"`
}

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// HH:MM on a 24-hour clock; 24:00 is accepted as an end-of-day alias.
	err := v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "24:00" || clockPattern.MatchString(s)
	})
	if err != nil {
		panic(fmt.Sprintf("register clock validation: %v", err))
	}
	return v
}

// Validate rejects records that must not reach the evaluator.
func (r *Record) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
			}
			return fmt.Errorf("%w: %s/%s: %s", ErrInvalidRecord, r.Kind, r.Name, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	switch r.Kind {
	case KindPeriod:
		if len(r.Periods) > 0 || r.Timezone != "" {
			return fmt.Errorf("%w: period/%s: periods and timezone belong to schedules", ErrInvalidRecord, r.Name)
		}
	case KindSchedule:
		if r.DaysOfWeek != "" || r.StartTime != "" || r.StopTime != "" {
			return fmt.Errorf("%w: schedule/%s: days and times belong to periods", ErrInvalidRecord, r.Name)
		}
	}
	return nil
}

func (r *Record) Period() Period {
	return Period{
		Name:       r.Name,
		DaysOfWeek: r.DaysOfWeek,
		StartTime:  r.StartTime,
		StopTime:   r.StopTime,
	}
}

func (r *Record) Schedule() *Schedule {
	return &Schedule{
		Name:     r.Name,
		Periods:  append([]string(nil), r.Periods...),
		Timezone: r.Timezone,
	}
}

func PeriodRecord(p Period) Record {
	return Record{
		Kind:       KindPeriod,
		Name:       p.Name,
		DaysOfWeek: p.DaysOfWeek,
		StartTime:  p.StartTime,
		StopTime:   p.StopTime,
	}
}

func ScheduleRecord(s *Schedule) Record {
	return Record{
		Kind:     KindSchedule,
		Name:     s.Name,
		Periods:  s.PeriodNames(),
		Timezone: s.Timezone,
	}
}
