package validation

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	streamIDRegex  = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	segmentIDRegex = regexp.MustCompile(`^[0-9]{1,9}\.ts$`)
)

func init() {
	MustRegisterGin("streamid", ValidateStreamID)
	MustRegisterGin("segmentid", ValidateSegmentID)
	MustRegisterGinAlias("dimension", "gt=0,lte=16384")
	MustRegisterGinAlias("title", "max=256")
}

// ValidateStreamID accepts 1-64 letters, digits, hyphens and underscores.
// Stream ids become directory names, so nothing path-like is allowed.
func ValidateStreamID(fl validator.FieldLevel) bool {
	return streamIDRegex.MatchString(fl.Field().String())
}

// ValidateSegmentID accepts segment file names produced by the transcoder (e.g. "007.ts").
func ValidateSegmentID(fl validator.FieldLevel) bool {
	return segmentIDRegex.MatchString(fl.Field().String())
}
