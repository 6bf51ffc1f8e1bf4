package catalog

import (
	"testing"

	"github.com/gdg-garage/medislot-api/internal/apperr"
	"github.com/gdg-garage/medislot-api/internal/models"
	"github.com/gdg-garage/medislot-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()
	override := int64(900)
	rows := []any{
		&models.HealthCenter{ID: "hc-1", Name: "City Lab", IsActive: true},
		&models.HealthCenter{ID: "hc-2", Name: "Closed Lab", IsActive: true},
		&models.LabTest{ID: "t-fbc", Name: "Full Blood Count", Price: 1000},
		&models.LabTest{ID: "t-lip", Name: "Lipid Profile", Price: 1500},
		&models.LabTest{ID: "t-tsh", Name: "TSH", Price: 2000},
		&models.CenterService{ID: "cs-1", HealthCenterID: "hc-1", TestID: "t-fbc", IsActive: true},
		&models.CenterService{ID: "cs-2", HealthCenterID: "hc-1", TestID: "t-lip", PriceOverride: &override, IsActive: true},
		&models.CenterService{ID: "cs-3", HealthCenterID: "hc-1", TestID: "t-tsh", IsActive: true},
	}
	for _, r := range rows {
		require.NoError(t, db.Create(r).Error)
	}
	// gorm skips false for columns with a default, so flip these afterwards
	require.NoError(t, db.Model(&models.HealthCenter{}).Where("id = ?", "hc-2").Update("is_active", false).Error)
	require.NoError(t, db.Model(&models.CenterService{}).Where("id = ?", "cs-3").Update("is_active", false).Error)
}

func TestCenter(t *testing.T) {
	db := testutil.NewDB(t)
	seedCatalog(t, db)

	c, err := Center(db, "hc-1")
	require.NoError(t, err)
	assert.Equal(t, "City Lab", c.Name)

	_, err = Center(db, "hc-2")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = Center(db, "hc-404")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestResolve(t *testing.T) {
	db := testutil.NewDB(t)
	seedCatalog(t, db)

	got, err := Resolve(db, "hc-1", []string{"t-lip", "cs-1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Offering{CenterServiceID: "cs-2", TestID: "t-lip", Name: "Lipid Profile", Price: 900}, got[0])
	assert.Equal(t, int64(1000), got[1].Price)

	_, err = Resolve(db, "hc-1", []string{"cs-1", "cs-3", "nope"})
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, []string{"cs-3", "nope"}, ae.Details)

	_, err = Resolve(db, "hc-2", []string{"cs-1"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput, "offering belongs to another center")

	_, err = Resolve(db, "hc-1", nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestListings(t *testing.T) {
	db := testutil.NewDB(t)
	seedCatalog(t, db)

	centers, err := Centers(db)
	require.NoError(t, err)
	require.Len(t, centers, 1)

	services, err := Services(db, "hc-1")
	require.NoError(t, err)
	assert.Len(t, services, 2)
}
