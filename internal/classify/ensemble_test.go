package classify

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type stubClassifier struct {
	label string
	err   error
}

func (s *stubClassifier) ClassifyText(context.Context, string, string) (string, error) {
	return s.label, s.err
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(CategoryEconomy))
	assert.True(t, IsValid(CategoryGeneral))
	assert.False(t, IsValid("finance"))
	assert.False(t, IsValid(""))
}

func TestClassify_RulesOnlyProfile(t *testing.T) {
	e := New(nil, testLogger())

	res := e.Classify(context.Background(),
		"Nueva tarifa de ETECSA sube el precio del dolar y las remesas",
		"La inflacion y la escasez golpean el mercado y los salarios en la isla",
		"")

	assert.Equal(t, CategoryEconomy, res.Category)
	assert.Equal(t, ProfileRulesOnly.Name, res.Detail.Profile)
	assert.Nil(t, res.Detail.External)
	assert.True(t, IsValid(res.Category))
}

func TestClassify_ExternalAgreement(t *testing.T) {
	e := New(&stubClassifier{label: "sports"}, testLogger())

	res := e.Classify(context.Background(),
		"Pelotero cubano firma contrato en la MLB",
		"El beisbol cubano celebra otra medalla para sus atletas",
		"")

	assert.Equal(t, CategorySports, res.Category)
	assert.Equal(t, ProfileWithExternal.Name, res.Detail.Profile)
	assert.Equal(t, 1.0, res.Detail.External[CategorySports])
	assert.False(t, res.LowConfidence)
}

func TestClassify_GarbageExternalLabelIsIgnored(t *testing.T) {
	e := New(&stubClassifier{label: "definitely-not-a-category"}, testLogger())

	res := e.Classify(context.Background(),
		"Vacunas y medicamentos escasean en hospitales",
		"Los medicos reportan falta de medicina en las clinicas",
		"")

	// Closure: the result is still a member of the closed set.
	assert.True(t, IsValid(res.Category))
	assert.Equal(t, CategoryHealth, res.Category)
	for _, score := range res.Detail.External {
		assert.Equal(t, 0.0, score)
	}
}

func TestClassify_ExternalErrorDegradesToDefault(t *testing.T) {
	e := New(&stubClassifier{err: errors.New("rate limited")}, testLogger())

	// Even over text the other strategies would label confidently, a
	// failed call degrades to the default category with the flag set.
	res := e.Classify(context.Background(),
		"Boxeo cubano gana medalla olimpica",
		"El atleta celebra con su equipo de deportes",
		"")

	assert.Equal(t, DefaultCategory, res.Category)
	assert.True(t, res.LowConfidence)
	assert.Equal(t, ProfileWithExternal.Name, res.Detail.Profile)
}

func TestClassify_ExternalErrorIgnoresHint(t *testing.T) {
	e := New(&stubClassifier{err: errors.New("timeout")}, testLogger())

	res := e.Classify(context.Background(), "Breve nota sin tema claro", "", CategoryCulture)

	assert.Equal(t, DefaultCategory, res.Category)
	assert.True(t, res.LowConfidence)
}

func TestClassify_LowConfidenceAdoptsValidHint(t *testing.T) {
	e := New(nil, testLogger())

	res := e.Classify(context.Background(), "Breve nota sin tema claro", "", CategoryCulture)

	assert.True(t, res.LowConfidence)
	assert.Equal(t, CategoryCulture, res.Category)
}

func TestClassify_LowConfidenceIgnoresInvalidHint(t *testing.T) {
	e := New(nil, testLogger())

	res := e.Classify(context.Background(), "Breve nota sin tema claro", "", "not-a-category")

	assert.True(t, res.LowConfidence)
	assert.True(t, IsValid(res.Category))
}

func TestClassify_AuditTrailComplete(t *testing.T) {
	e := New(&stubClassifier{label: CategoryEconomy}, testLogger())

	res := e.Classify(context.Background(),
		"Sube el precio del combustible", "El mercado reacciona a la tarifa", "")

	for _, cat := range Categories() {
		_, ok := res.Detail.Rules[cat]
		assert.True(t, ok, "rules score missing for %s", cat)
		_, ok = res.Detail.Similarity[cat]
		assert.True(t, ok, "similarity score missing for %s", cat)
		_, ok = res.Detail.External[cat]
		assert.True(t, ok, "external score missing for %s", cat)
	}
}
