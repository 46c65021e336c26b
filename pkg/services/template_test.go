package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/persistence"
)

func TestTemplate_Create(t *testing.T) {
	f := newFixture()

	template, err := f.templates.Create(t.Context(), CreateTemplateRequest{
		Name:      "Client Onboarding",
		Type:      models.TemplateTypeStandard,
		Color:     "#3366FF",
		Tags:      []string{"crm"},
		CreatedBy: "owner-1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, template.ID)
	assert.True(t, template.IsActive)
	assert.False(t, template.IsPublished)
	assert.Equal(t, 1, template.Version)
	assert.Equal(t, "owner-1", template.CreatedBy)
}

func TestTemplate_Create_RequiresName(t *testing.T) {
	f := newFixture()

	_, err := f.templates.Create(t.Context(), CreateTemplateRequest{
		Name:      "   ",
		Type:      models.TemplateTypeStandard,
		CreatedBy: "owner-1",
	})

	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestTemplate_Create_RejectsUnknownType(t *testing.T) {
	f := newFixture()

	_, err := f.templates.Create(t.Context(), CreateTemplateRequest{
		Name:      "Onboarding",
		Type:      models.TemplateType("spiral"),
		CreatedBy: "owner-1",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTemplateType)
	assert.True(t, IsValidationError(err))
}

func TestTemplate_Create_RejectsBadColor(t *testing.T) {
	f := newFixture()

	_, err := f.templates.Create(t.Context(), CreateTemplateRequest{
		Name:      "Onboarding",
		Type:      models.TemplateTypeStandard,
		Color:     "blue",
		CreatedBy: "owner-1",
	})

	assert.ErrorIs(t, err, ErrInvalidColor)
}

func TestTemplate_FetchByID_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.templates.FetchByID(t.Context(), "missing")

	assert.ErrorIs(t, err, persistence.ErrTemplateNotFound)
}

func TestTemplate_Update_PatchesOnlyProvidedFields(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")

	name := "Renamed"
	updated, err := f.templates.Update(t.Context(), template.ID, TemplatePatch{Name: &name}, "owner-1")
	require.NoError(t, err)

	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, template.Type, updated.Type)
	assert.Equal(t, "owner-1", updated.UpdatedBy)
	assert.True(t, updated.UpdatedAt.After(template.UpdatedAt) || updated.UpdatedAt.Equal(template.UpdatedAt))
}

func TestTemplate_Update_DeniedForStranger(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")

	name := "Hijacked"
	_, err := f.templates.Update(t.Context(), template.ID, TemplatePatch{Name: &name}, "stranger")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.True(t, IsAuthorizationError(err))
}

func TestTemplate_Update_AllowedForAdmin(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")
	f.persistence.GrantRole("admin-1", models.RoleAdmin)

	name := "Admin Rename"
	updated, err := f.templates.Update(t.Context(), template.ID, TemplatePatch{Name: &name}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "Admin Rename", updated.Name)
}

func TestTemplate_Delete_SoftDeletes(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")

	require.NoError(t, f.templates.Delete(t.Context(), template.ID, "owner-1"))

	_, err := f.templates.FetchByID(t.Context(), template.ID)
	assert.ErrorIs(t, err, persistence.ErrTemplateNotFound)
}

func TestTemplate_Delete_BlockedByActiveInstances(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")

	_, err := f.templates.Publish(t.Context(), template.ID, "owner-1")
	require.NoError(t, err)

	instance, err := f.instances.Create(t.Context(), CreateInstanceRequest{
		TemplateID: template.ID,
		CreatedBy:  "client-1",
	})
	require.NoError(t, err)

	active := models.InstanceStatusActive
	_, err = f.instances.UpdateProgress(t.Context(), instance.ID, ProgressUpdate{
		Status:    &active,
		UpdatedBy: "client-1",
	})
	require.NoError(t, err)

	err = f.templates.Delete(t.Context(), template.ID, "owner-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrActiveInstances)
	assert.True(t, IsConflictError(err))
}

func TestTemplate_PublishBumpsVersion(t *testing.T) {
	f := newFixture()
	template := f.createTemplate(t, "owner-1")

	published, err := f.templates.Publish(t.Context(), template.ID, "owner-1")
	require.NoError(t, err)

	assert.True(t, published.IsPublished)
	assert.Equal(t, 2, published.Version)

	unpublished, err := f.templates.Unpublish(t.Context(), template.ID, "owner-1")
	require.NoError(t, err)

	assert.False(t, unpublished.IsPublished)
	assert.Equal(t, 2, unpublished.Version)
}
