package scheduler

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/aristath/drawlab/internal/testing"
)

func TestDatabaseMaintenanceJob(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t)
	defer cleanup()

	job := NewDatabaseMaintenanceJob(db, zerolog.Nop())
	assert.Equal(t, "database_maintenance", job.Name())
	require.NoError(t, job.Run())
}

func TestDatabaseMaintenanceJob_ClosedDatabase(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t)
	cleanup()

	job := NewDatabaseMaintenanceJob(db, zerolog.Nop())
	assert.Error(t, job.Run())
}
