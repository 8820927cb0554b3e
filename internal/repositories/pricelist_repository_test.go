package repositories_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vistav/site-api/internal/models"
	"github.com/vistav/site-api/internal/repositories"
)

func samplePriceList() models.PriceList {
	return models.PriceList{
		"renovation": {
			Title: "Rekonstrukce",
			Icon:  "fa-hammer",
			Items: []models.PriceItem{
				{Service: "Rekonstrukce bytu", Price: "od 15 000 Kč/m²"},
			},
		},
	}
}

func TestPriceListSaveAndGet(t *testing.T) {
	dir := t.TempDir()
	repo := repositories.NewPriceListRepository(dir)

	require.NoError(t, repo.Save("uk", samplePriceList()))

	list, err := repo.Get("uk")
	require.NoError(t, err)
	require.Contains(t, list, "renovation")
	assert.Equal(t, "Rekonstrukce", list["renovation"].Title)
	require.Len(t, list["renovation"].Items, 1)
}

func TestPriceListGet_MissingLanguageIsEmpty(t *testing.T) {
	repo := repositories.NewPriceListRepository(t.TempDir())

	list, err := repo.Get("en")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPriceListSave_CzechMirrorsToMainDocument(t *testing.T) {
	dir := t.TempDir()
	repo := repositories.NewPriceListRepository(dir)

	require.NoError(t, repo.Save("cs", samplePriceList()))

	_, err := os.Stat(filepath.Join(dir, "prices.json"))
	assert.NoError(t, err)

	require.NoError(t, repo.Save("en", samplePriceList()))
	// Non-default languages do not touch the mirror
	data, err := os.ReadFile(filepath.Join(dir, "prices.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Rekonstrukce")
}

func TestPriceListUnknownLanguage(t *testing.T) {
	repo := repositories.NewPriceListRepository(t.TempDir())

	_, err := repo.Get("de")
	assert.ErrorIs(t, err, models.ErrBadRequest)
	assert.ErrorIs(t, repo.Save("de", samplePriceList()), models.ErrBadRequest)
}
