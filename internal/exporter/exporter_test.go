// File: internal/exporter/exporter_test.go
package exporter

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pwscript/internal/command"
)

func TestToPlaywright(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		line string
		want string
	}{
		{`goto example.com`, `await page.goto('https://example.com');`},
		{`open http://localhost:3000/`, `await page.goto('http://localhost:3000/');`},
		{`click "Submit"`, `await page.getByText('Submit').click();`},
		{`c Submit`, `await page.getByText('Submit').click();`},
		{`click "Delete" "Buy milk"`, `await page.locator('li, tr, [role=listitem], [role=row], article').filter({ hasText: 'Buy milk' }).getByText('Delete').click();`},
		{`click "button" "Buy milk"`, `await page.locator('li, tr, [role=listitem], [role=row], article').filter({ hasText: 'Buy milk' }).locator('button').first().click();`},
		{`click e5`, `await page.locator('xpath=(//*)[5]').click();`},
		{`dblclick "Row"`, `await page.getByText('Row').dblclick();`},
		{`fill "Email" "a@b.c"`, `await page.getByLabel('Email').or(page.getByPlaceholder('Email')).first().fill('a@b.c');`},
		{`select "Size" "Large"`, `await page.getByLabel('Size').selectOption('Large');`},
		{`check "Accept terms"`, `await page.getByLabel('Accept terms').check();`},
		{`uncheck "Accept terms"`, `await page.getByLabel('Accept terms').uncheck();`},
		{`hover Menu`, `await page.getByText('Menu').hover();`},
		{`press enter`, `await page.keyboard.press('Enter');`},
		{`p space`, `await page.keyboard.press('Space');`},
		{`press a`, `await page.keyboard.press('a');`},
		{`screenshot`, `await page.screenshot({ path: 'screenshot.png' });`},
		{`screenshot full`, `await page.screenshot({ path: 'screenshot.png', fullPage: true });`},
		{`eval "document.title"`, `await page.evaluate('document.title');`},
		{`back`, `await page.goBack();`},
		{`forward`, `await page.goForward();`},
		{`reload`, `await page.reload();`},
		{`verify-text "Welcome"`, `await expect(page.locator('body')).toContainText('Welcome');`},
		{`verify-no-text "Error"`, `await expect(page.locator('body')).not.toContainText('Error');`},
		{`verify-element "Save"`, `await expect(page.getByText('Save').first()).toBeVisible();`},
		{`verify-no-element "Spinner"`, `await expect(page.getByText('Spinner')).toHaveCount(0);`},
		{`verify-url "/cart?id=1"`, `await expect(page).toHaveURL(/\/cart\?id=1/);`},
		{`verify-title "Shop (beta)"`, `await expect(page).toHaveTitle(/Shop \(beta\)/);`},
		{`fill "Name" "O'Brien"`, `await page.getByLabel('Name').or(page.getByPlaceholder('Name')).first().fill('O\'Brien');`},
	}
	for _, tc := range testCases {
		got, ok := ToPlaywright(tc.line)
		require.True(t, ok, tc.line)
		assert.Equal(t, tc.want, got, tc.line)
	}
}

func TestToPlaywrightRejects(t *testing.T) {
	t.Parallel()
	for _, line := range []string{
		"", "   ", "# comment",
		"goto",
		"fill Email",
		"select Size",
		"press PageDown",
		"snapshot",
		"export",
		"help",
		"frobnicate x",
	} {
		got, ok := ToPlaywright(line)
		assert.False(t, ok, line)
		assert.Empty(t, got, line)
	}
}

func TestToPlaywrightIsPure(t *testing.T) {
	t.Parallel()
	for _, line := range []string{`click "A" "B"`, `goto x.com`, `fill`, `verify-url a.b`} {
		first, ok1 := ToPlaywright(line)
		second, ok2 := ToPlaywright(line)
		assert.Equal(t, ok1, ok2)
		assert.Equal(t, first, second)
	}
}

func TestEveryKindHasConverter(t *testing.T) {
	t.Parallel()
	for _, spec := range command.Specs() {
		_, ok := converters[spec.Kind]
		assert.True(t, ok, "no exporter entry for %s", spec.Name)
	}
	assert.Len(t, converters, len(command.Specs()))
}

func TestExportScriptScenario(t *testing.T) {
	t.Parallel()
	out := ExportScript([]string{"goto https://x.com", `click "Submit"`}, "")

	want := strings.Join([]string{
		"import { test, expect } from '@playwright/test';",
		"",
		"test('recorded test', async ({ page }) => {",
		"  await page.goto('https://x.com');",
		"  await page.getByText('Submit').click();",
		"});",
		"",
	}, "\n")
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("ExportScript mismatch (-want +got):\n%s", diff)
	}
}

func TestExportScriptCommentsAndSkips(t *testing.T) {
	t.Parallel()
	out := ExportScript([]string{
		"# login flow",
		"",
		"goto",
		"snapshot",
		"teleport home",
		`verify-text "Hi"`,
	}, "login's test")

	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 9)
	assert.Equal(t, `test('login\'s test', async ({ page }) => {`, lines[2])
	assert.Equal(t, "  // login flow", lines[3])
	assert.Equal(t, "", lines[4])
	assert.Equal(t, "  // goto (skipped: missing arguments, usage: goto <url>)", lines[5])
	assert.Equal(t, "  // snapshot (skipped: snapshot has no test equivalent)", lines[6])
	assert.Equal(t, `  // teleport home (skipped: unknown command "teleport")`, lines[7])
	assert.Equal(t, "  await expect(page.locator('body')).toContainText('Hi');", lines[8])
	assert.True(t, strings.HasSuffix(out, "});\n"))
}
