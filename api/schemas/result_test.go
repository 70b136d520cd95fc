package schemas_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pwscript/api/schemas"
)

func TestResultWireFormat(t *testing.T) {
	t.Parallel()
	data, err := json.Marshal(schemas.Ok("Clicked %s", "button"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"kind":"success","data":"Clicked button"}`, string(data))
}

func TestResultConstructors(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name    string
		result  schemas.Result
		kind    schemas.ResultKind
		success bool
		passed  bool
	}{
		{"ok", schemas.Ok("done"), schemas.KindSuccess, true, true},
		{"fail", schemas.Fail("Element not found: %s", "Save"), schemas.KindError, false, false},
		{"info", schemas.Info("help"), schemas.KindInfo, true, true},
		{"snapshot", schemas.Snapshot("- button \"Save\" [ref=e3]"), schemas.KindSnapshot, true, true},
		{"screenshot", schemas.Screenshot("iVBORw0"), schemas.KindScreenshot, true, true},
		{"verdict pass", schemas.Verdict(true, "text %q found on page", "Hi"), schemas.KindSuccess, true, true},
		{"verdict fail", schemas.Verdict(false, "text %q not found on page", "Hi"), schemas.KindError, false, false},
	}

	for _, tc := range testCases {
		tt := tc
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.kind, tt.result.Kind)
			assert.Equal(t, tt.success, tt.result.Success)
			assert.Equal(t, tt.passed, tt.result.Passed())
		})
	}
}

func TestVerdictText(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `PASS: text "Welcome" found on page`, schemas.Verdict(true, "text %q found on page", "Welcome").Data)
	assert.Equal(t, `FAIL: text "Welcome" not found on page`, schemas.Verdict(false, "text %q not found on page", "Welcome").Data)
}

func TestScreenshotStringIsShort(t *testing.T) {
	t.Parallel()
	r := schemas.Screenshot("aGVsbG8gd29ybGQ=")
	assert.Equal(t, "[screenshot] <16 bytes base64>", r.String())
	assert.Equal(t, "[info] hi", schemas.Info("hi").String())
}
