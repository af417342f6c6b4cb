package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := RegisterRequest{
		Name:      "  Corner Shop  ",
		Phone:     " 0912345678 ",
		OwnerName: " Lan ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "Corner Shop", req.Name)
	assert.Equal(t, "0912345678", req.Phone)
	assert.Equal(t, "Lan", req.OwnerName)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	req := CreateReminderRequest{Message: "pay <script>alert('x')</script> soon"}
	SanitizeStruct(&req)

	assert.Contains(t, req.Message, "&lt;script&gt;")
	assert.NotContains(t, req.Message, "<script>")
}

func TestSanitizeStruct_LeavesSecretsAlone(t *testing.T) {
	req := RegisterRequest{Password: " p&ss<word> ", Pin: "1234"}
	SanitizeStruct(&req)

	assert.Equal(t, " p&ss<word> ", req.Password)
	assert.Equal(t, "1234", req.Pin)
}

func TestSanitizeStruct_NonPointerIgnored(t *testing.T) {
	req := AddLinkRequest{UserID: " URABCDEF "}
	SanitizeStruct(req)
	assert.Equal(t, " URABCDEF ", req.UserID)
}

// --- custom validator tests ---

func TestValidators(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		ok    bool
	}{
		{"valid link", AddLinkRequest{UserID: "URABC123"}, true},
		{"lowercase id", AddLinkRequest{UserID: "urabc123"}, false},
		{"bad prefix id", AddLinkRequest{UserID: "XXABC123"}, false},
		{"short id", AddLinkRequest{UserID: "URABC"}, false},
		{"non hex id", AddLinkRequest{UserID: "URABCXYZ"}, false},
		{"valid delink", DelinkRequest{MerchantID: "MR000001", UserID: "UR000002", Pin: "123456"}, true},
		{"short pin", DelinkRequest{MerchantID: "MR000001", UserID: "UR000002", Pin: "123"}, false},
		{"alpha pin", DelinkRequest{MerchantID: "MR000001", UserID: "UR000002", Pin: "12a4"}, false},
		{"valid register", RegisterRequest{Name: "Shop", Phone: "0912345678", Password: "longenough"}, true},
		{"short phone", RegisterRequest{Name: "Shop", Phone: "09123", Password: "longenough"}, false},
		{"short password", RegisterRequest{Name: "Shop", Phone: "0912345678", Password: "short"}, false},
		{"valid reminder", CreateReminderRequest{
			UserID: "UR000002", LinkID: "6f1c2a9e-7d4b-4f61-9a0e-2c5b8f3d1e77", Message: "hi", TargetDate: "2026-04-01",
		}, true},
		{"bad date", CreateReminderRequest{
			UserID: "UR000002", LinkID: "6f1c2a9e-7d4b-4f61-9a0e-2c5b8f3d1e77", Message: "hi", TargetDate: "01/04/2026",
		}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(tc.value)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestParseTargetDate(t *testing.T) {
	d, err := ParseTargetDate("2026-04-01")
	require.NoError(t, err)
	assert.Equal(t, "2026-04-01T00:00:00Z", d.Format("2006-01-02T15:04:05Z07:00"))

	_, err = ParseTargetDate("tomorrow")
	assert.Error(t, err)
}
