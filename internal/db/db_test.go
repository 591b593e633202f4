package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/gate"
	"github.com/diewo77/seo-backoffice/internal/doctemplate"
	"github.com/diewo77/seo-backoffice/internal/models"
)

func openTest(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := OpenSQLite(MemoryDSN(t.Name()))
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

func TestSeedProfiles_Idempotent(t *testing.T) {
	conn := openTest(t)
	require.NoError(t, Seed(conn))
	require.NoError(t, Seed(conn))

	var n int64
	conn.Model(&models.Profile{}).Count(&n)
	assert.EqualValues(t, 3, n)

	var dup int64
	conn.Model(&models.Permission{}).Where("resource_type = ? AND action = ?", "template", "set_default").Count(&dup)
	assert.EqualValues(t, 1, dup)

	var viewer models.Profile
	require.NoError(t, conn.Preload("Permissions").Where("name = ?", ProfileViewer).First(&viewer).Error)
	assert.ElementsMatch(t, []string{"*:list", "*:view"}, viewer.PermissionCodes())

	var manager models.Profile
	require.NoError(t, conn.Preload("Permissions").Where("name = ?", ProfileAccountManager).First(&manager).Error)
	assert.Contains(t, manager.PermissionCodes(), "template:*")
	assert.True(t, manager.IsSystem)
}

func TestSeedPermissions_CoverActions(t *testing.T) {
	codes := map[string]bool{}
	for _, p := range permissionSeeds() {
		codes[p.ResourceType+":"+string(p.Action)] = true
	}
	for _, want := range []gate.Permission{
		"report:generate", "report:publish", "invoice:finalize",
		"template:set_default", "ticket:transition", "contract:export",
	} {
		assert.True(t, codes[string(want)], want)
	}
}

func TestDefaultTemplates(t *testing.T) {
	ts := DefaultTemplates()
	types := map[doctemplate.DocumentType]int{}
	for _, tpl := range ts {
		types[tpl.DocumentType]++
		require.NoError(t, doctemplate.Validate(tpl))
	}
	for _, dt := range doctemplate.DocumentTypes() {
		assert.GreaterOrEqual(t, types[dt], 1, dt)
	}
}

func TestParseTemplates_Rejects(t *testing.T) {
	_, err := ParseTemplates([]byte("templates:\n  - name: x\n    document_type: memo\n"))
	assert.Error(t, err)

	_, err = ParseTemplates([]byte("templates:\n  - name: x\n    document_type: invoice\n    header_html: '{{nope}}'\n"))
	assert.ErrorIs(t, err, doctemplate.ErrUnknownToken)
}

func TestSeedTemplates(t *testing.T) {
	conn := openTest(t)
	user := models.User{Email: "a@agency.fr", Password: "x"}
	require.NoError(t, conn.Create(&user).Error)

	require.NoError(t, SeedTemplates(conn, user.ID))
	require.NoError(t, SeedTemplates(conn, user.ID))

	var total int64
	conn.Model(&models.DocumentTemplate{}).Where("user_id = ?", user.ID).Count(&total)
	assert.EqualValues(t, len(DefaultTemplates()), total)

	for _, dt := range doctemplate.DocumentTypes() {
		var defaults int64
		conn.Model(&models.DocumentTemplate{}).
			Where("user_id = ? AND document_type = ? AND is_default = ?", user.ID, dt, true).
			Count(&defaults)
		assert.EqualValues(t, 1, defaults, dt)
	}

	var report models.DocumentTemplate
	require.NoError(t, conn.Where("user_id = ? AND document_type = ?", user.ID, doctemplate.SEOReport).First(&report).Error)
	assert.NotEmpty(t, report.Template().Enabled())
}

func TestDefaultTemplateIndex(t *testing.T) {
	conn := openTest(t)
	a := models.DocumentTemplate{UserID: 1, Name: "a", DocumentType: doctemplate.Invoice, IsDefault: true}
	b := models.DocumentTemplate{UserID: 1, Name: "b", DocumentType: doctemplate.Invoice, IsDefault: true}
	require.NoError(t, conn.Create(&a).Error)
	assert.Error(t, conn.Create(&b).Error)

	other := models.DocumentTemplate{UserID: 2, Name: "c", DocumentType: doctemplate.Invoice, IsDefault: true}
	assert.NoError(t, conn.Create(&other).Error)
}

func TestMaskDSN(t *testing.T) {
	assert.NotContains(t, MaskDSN("host=db user=seo password=hunter2 dbname=x"), "hunter2")
	assert.NotContains(t, MaskDSN("postgres://seo:hunter2@db:5432/x"), "hunter2")
}
