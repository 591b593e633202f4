package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/internal/db"
	"github.com/diewo77/seo-backoffice/internal/doctemplate"
	"github.com/diewo77/seo-backoffice/internal/models"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.OpenSQLite(db.MemoryDSN(t.Name()))
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

func createUser(t *testing.T, conn *gorm.DB, email string) models.User {
	t.Helper()
	u := models.User{Email: email, Password: "x"}
	require.NoError(t, conn.Create(&u).Error)
	return u
}

func reportTemplate(name string, isDefault bool) TemplateInput {
	return TemplateInput{
		Name:         name,
		DocumentType: doctemplate.SEOReport,
		IsDefault:    isDefault,
		HeaderHTML:   "<p>{{companyName}}</p>",
		Sections: []doctemplate.Section{
			{Name: "Intro", Content: "<p>Hello {{clientName}}</p>", IsEnabled: true, Order: 1},
		},
	}
}

func countDefaults(t *testing.T, conn *gorm.DB, userID uint, dt doctemplate.DocumentType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&models.DocumentTemplate{}).
		Where("user_id = ? AND document_type = ? AND is_default = ?", userID, dt, true).
		Count(&n).Error)
	return n
}

func TestTemplateService_CreateAssignsSectionIDs(t *testing.T) {
	conn := openDB(t)
	u := createUser(t, conn, "a@agency.fr")
	svc := NewTemplateService(conn)

	rec, err := svc.Create(context.Background(), u.ID, reportTemplate("Monthly", false))
	require.NoError(t, err)
	sections := rec.Template().Sections
	require.Len(t, sections, 1)
	assert.NotEmpty(t, sections[0].ID)

	got, err := svc.Get(context.Background(), u.ID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, sections[0].ID, got.Template().Sections[0].ID)
}

func TestTemplateService_Validation(t *testing.T) {
	conn := openDB(t)
	u := createUser(t, conn, "a@agency.fr")
	svc := NewTemplateService(conn)

	in := reportTemplate("", false)
	in.DocumentType = "memo"
	in.HeaderHTML = "{{agencyPhone}}"
	_, err := svc.Create(context.Background(), u.ID, in)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "required", verr.Violations["name"])
	assert.Equal(t, "not_allowed", verr.Violations["document_type"])
	assert.Equal(t, "unknown_token", verr.Violations["template"])
}

func TestTemplateService_SetDefaultLeavesExactlyOne(t *testing.T) {
	conn := openDB(t)
	u := createUser(t, conn, "a@agency.fr")
	svc := NewTemplateService(conn)
	ctx := context.Background()

	a, err := svc.Create(ctx, u.ID, reportTemplate("A", true))
	require.NoError(t, err)
	b, err := svc.Create(ctx, u.ID, reportTemplate("B", false))
	require.NoError(t, err)
	c, err := svc.Create(ctx, u.ID, reportTemplate("C", true))
	require.NoError(t, err)
	assert.EqualValues(t, 1, countDefaults(t, conn, u.ID, doctemplate.SEOReport))

	for _, id := range []uint{b.ID, a.ID, c.ID, c.ID} {
		got, err := svc.SetDefault(ctx, u.ID, id)
		require.NoError(t, err)
		assert.True(t, got.IsDefault)
		assert.EqualValues(t, 1, countDefaults(t, conn, u.ID, doctemplate.SEOReport))

		def, err := svc.Default(ctx, u.ID, doctemplate.SEOReport)
		require.NoError(t, err)
		assert.Equal(t, id, def.ID)
	}
}

func TestTemplateService_DefaultsAreScopedPerTypeAndAccount(t *testing.T) {
	conn := openDB(t)
	u1 := createUser(t, conn, "a@agency.fr")
	u2 := createUser(t, conn, "b@agency.fr")
	svc := NewTemplateService(conn)
	ctx := context.Background()

	_, err := svc.Create(ctx, u1.ID, reportTemplate("R1", true))
	require.NoError(t, err)
	_, err = svc.Create(ctx, u2.ID, reportTemplate("R2", true))
	require.NoError(t, err)
	inv := reportTemplate("Invoice", true)
	inv.DocumentType = doctemplate.Invoice
	_, err = svc.Create(ctx, u1.ID, inv)
	require.NoError(t, err)

	assert.EqualValues(t, 1, countDefaults(t, conn, u1.ID, doctemplate.SEOReport))
	assert.EqualValues(t, 1, countDefaults(t, conn, u1.ID, doctemplate.Invoice))
	assert.EqualValues(t, 1, countDefaults(t, conn, u2.ID, doctemplate.SEOReport))

	list, err := svc.List(ctx, u1.ID, doctemplate.Invoice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Invoice", list[0].Name)
}

func TestTemplateService_OtherAccountCannotSee(t *testing.T) {
	conn := openDB(t)
	owner := createUser(t, conn, "a@agency.fr")
	other := createUser(t, conn, "b@agency.fr")
	svc := NewTemplateService(conn)
	ctx := context.Background()

	rec, err := svc.Create(ctx, owner.ID, reportTemplate("Private", false))
	require.NoError(t, err)

	_, err = svc.Get(ctx, other.ID, rec.ID)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
	_, err = svc.SetDefault(ctx, other.ID, rec.ID)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestTemplateService_UpdateDeleteDuplicate(t *testing.T) {
	conn := openDB(t)
	u := createUser(t, conn, "a@agency.fr")
	svc := NewTemplateService(conn)
	ctx := context.Background()

	def, err := svc.Create(ctx, u.ID, reportTemplate("Default", true))
	require.NoError(t, err)
	other, err := svc.Create(ctx, u.ID, reportTemplate("Other", false))
	require.NoError(t, err)

	in := reportTemplate("Renamed", false)
	in.FooterHTML = "<p>{{currentPage}}/{{totalPages}}</p>"
	updated, err := svc.Update(ctx, u.ID, other.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.False(t, updated.IsDefault)

	moved := reportTemplate("Default", false)
	moved.DocumentType = doctemplate.Contract
	_, err = svc.Update(ctx, u.ID, def.ID, moved)
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	assert.ErrorIs(t, svc.Delete(ctx, u.ID, def.ID), ErrDefaultTemplateUsed)

	dup, err := svc.Duplicate(ctx, u.ID, def.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Default (copie)", dup.Name)
	assert.False(t, dup.IsDefault)
	assert.NotEqual(t, def.Template().Sections[0].ID, dup.Template().Sections[0].ID)

	require.NoError(t, svc.Delete(ctx, u.ID, dup.ID))
	_, err = svc.Get(ctx, u.ID, dup.ID)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestTemplateService_UniqueIndexMapsToConflict(t *testing.T) {
	conn := openDB(t)
	u := createUser(t, conn, "a@agency.fr")
	svc := NewTemplateService(conn)

	first := models.DocumentTemplate{UserID: u.ID, Name: "a", DocumentType: doctemplate.Proposal, IsDefault: true}
	require.NoError(t, conn.Create(&first).Error)
	dup := models.DocumentTemplate{UserID: u.ID, Name: "b", DocumentType: doctemplate.Proposal, IsDefault: true}
	err := svc.mapWriteError("insert", conn.Create(&dup).Error)
	assert.ErrorIs(t, err, ErrDefaultConflict)
}

func TestTemplateService_DefaultMissing(t *testing.T) {
	conn := openDB(t)
	u := createUser(t, conn, "a@agency.fr")
	svc := NewTemplateService(conn)

	_, err := svc.Default(context.Background(), u.ID, doctemplate.Contract)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func fixedNow() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }
