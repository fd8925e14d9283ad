package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/hr-attendance-api/pkg/errors"
)

func TestResolveDeviceIDPrefersHeader(t *testing.T) {
	assert.Equal(t, "header-device", ResolveDeviceID(" header-device ", "body-device"))
	assert.Equal(t, "body-device", ResolveDeviceID("", "body-device"))
	assert.Equal(t, "", ResolveDeviceID("  ", ""))
}

func TestValidateDeviceID(t *testing.T) {
	cases := []struct {
		name string
		in   string
		err  error
	}{
		{name: "missing", in: "", err: appErrors.ErrMissingDeviceID},
		{name: "blank", in: "   ", err: appErrors.ErrMissingDeviceID},
		{name: "too short", in: "abc1234", err: appErrors.ErrInvalidDeviceIDFormat},
		{name: "bad chars", in: "device:0001", err: appErrors.ErrInvalidDeviceIDFormat},
		{name: "minimum length", in: "abcd1234"},
		{name: "dash and underscore", in: "my_phone-01"},
		{name: "column width", in: strings.Repeat("d", 255)},
		{name: "wider than column", in: strings.Repeat("d", 256), err: appErrors.ErrInvalidDeviceIDFormat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateDeviceID(tc.in)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.in, got)
		})
	}
}
