package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ValidationTestSuite struct {
	suite.Suite
	validator *validator.Validate
}

func (s *ValidationTestSuite) SetupTest() {
	s.validator = New()
}

func TestValidationTestSuite(t *testing.T) {
	suite.Run(t, new(ValidationTestSuite))
}

func (s *ValidationTestSuite) TestValidateStreamID() {
	type req struct {
		ID string `validate:"streamid"`
	}

	tests := []struct {
		name     string
		streamID string
		wantErr  bool
	}{
		{name: "short name", streamID: "cam", wantErr: false},
		{name: "uuid", streamID: "0b6c2c1e-8a53-4f5e-9d43-94c7a9a1f0de", wantErr: false},
		{name: "underscore", streamID: "living_room", wantErr: false},
		{name: "single char", streamID: "1", wantErr: false},
		{name: "empty", streamID: "", wantErr: true},
		{name: "path traversal", streamID: "../etc", wantErr: true},
		{name: "slash", streamID: "a/b", wantErr: true},
		{name: "too long", streamID: "12345678901234567890123456789012345678901234567890123456789012345", wantErr: true},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			err := s.validator.Struct(req{ID: tt.streamID})
			if tt.wantErr {
				s.Require().Error(err)
			} else {
				s.Require().NoError(err)
			}
		})
	}
}

func (s *ValidationTestSuite) TestValidateSegmentID() {
	s.True(segmentIDRegex.MatchString("000.ts"))
	s.True(segmentIDRegex.MatchString("1234.ts"))

	s.False(segmentIDRegex.MatchString("index.m3u8"))
	s.False(segmentIDRegex.MatchString("../000.ts"))
	s.False(segmentIDRegex.MatchString(".ts"))
	s.False(segmentIDRegex.MatchString("000.ts.bak"))
}

func (s *ValidationTestSuite) TestDimensionAlias() {
	type req struct {
		Width int `validate:"dimension"`
	}

	s.NoError(s.validator.Struct(req{Width: 1280}))
	s.Error(s.validator.Struct(req{Width: 0}))
	s.Error(s.validator.Struct(req{Width: -4}))
	s.Error(s.validator.Struct(req{Width: 20000}))
}

func (s *ValidationTestSuite) TestRegister() {
	customValidator := func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "test"
	}

	err := Register(s.validator, "custom", customValidator)
	s.Require().NoError(err)

	type TestStruct struct {
		Field string `validate:"custom"`
	}

	s.Require().NoError(s.validator.Struct(TestStruct{Field: "test"}))
	s.Require().Error(s.validator.Struct(TestStruct{Field: "invalid"}))
}

func (s *ValidationTestSuite) TestRegisterAlias() {
	RegisterAlias(s.validator, "testalias", "required,min=5")

	type TestStruct struct {
		Field string `validate:"testalias"`
	}

	s.Require().NoError(s.validator.Struct(TestStruct{Field: "hello"}))
	s.Require().Error(s.validator.Struct(TestStruct{Field: "hi"}))
	s.Require().Error(s.validator.Struct(TestStruct{Field: ""}))
}

func (s *ValidationTestSuite) TestFormatValidationError() {
	type TestStruct struct {
		Name   string `validate:"required"`
		Width  int    `validate:"dimension"`
		Height int    `validate:"dimension"`
	}

	err := s.validator.Struct(TestStruct{})
	s.Require().Error(err)

	formatted := FormatValidationError(err)
	s.Len(formatted, 3)

	fields := make(map[string]bool)
	for _, e := range formatted {
		fields[e.Field] = true
		s.NotEmpty(e.Message)
	}
	s.True(fields["Name"])
	s.True(fields["Width"])
	s.True(fields["Height"])
}

func (s *ValidationTestSuite) TestFormatValidationErrorNonValidationError() {
	s.Empty(FormatValidationError(assert.AnError))
	s.Empty(FormatValidationError(nil))
}
