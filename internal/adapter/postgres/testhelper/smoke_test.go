package testhelper

import (
	"context"
	"testing"
)

func TestSetupTestDB_Smoke(t *testing.T) {
	pool := SetupTestDB(t)

	app := SeedApplication(t, pool, nil)

	var organization string
	err := pool.QueryRow(
		context.Background(),
		`SELECT organization FROM applications WHERE id = $1`,
		app.ID,
	).Scan(&organization)
	if err != nil {
		t.Fatalf("expected application in DB, got error: %v", err)
	}

	if organization != app.Organization {
		t.Fatalf("expected organization %q, got %q", app.Organization, organization)
	}
}
