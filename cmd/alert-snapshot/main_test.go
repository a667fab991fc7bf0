package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-risk-alerts/internal/repository"
)

const snapshotJSON = `[
  {
    "id": "alert_1",
    "category": "BigTechThreat",
    "severity": "Orange",
    "timeline": "Urgent",
    "trigger": "Big Tech Announces Brazil Investment",
    "description": "Triggered by: big_tech_announces_brazil_investment",
    "impact_assessment": "Impact assessment pending",
    "actions": [],
    "stakeholders": [{"name": "Chief Executive Officer", "role": "CEO", "contacts": {"email": "ceo@company.com"}, "thresholds": null}],
    "status": "Active",
    "escalation_count": 0,
    "auto_generated": true,
    "source": "news",
    "created_at": "2026-03-10T14:00:00.000000000Z",
    "last_updated": "2026-03-10T14:00:00.000000000Z"
  }
]`

func TestImportSnapshot(t *testing.T) {
	db, err := repository.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	n, err := importSnapshot(context.Background(), db, []byte(snapshotJSON))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	latest, err := db.LatestSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, latest.AlertCount)
	assert.Contains(t, string(latest.Data), `"id": "alert_1"`)
}

func TestImportSnapshot_RejectsInvalid(t *testing.T) {
	db, err := repository.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = importSnapshot(context.Background(), db, []byte(`[{"id": "x", "severity": "Purple"}]`))
	assert.Error(t, err)

	_, err = db.LatestSnapshot(context.Background())
	assert.ErrorIs(t, err, repository.ErrNoSnapshot)
}
