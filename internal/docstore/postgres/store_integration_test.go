//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"shadow/internal/docstore"
	"shadow/internal/docstore/docstoretest"
	"shadow/internal/docstore/postgres"
	"shadow/pkg/testutil/containers"
)

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pg := containers.GetManager().GetPostgres(t)

	suite.Run(t, &docstoretest.StoreSuite{
		NewStore: func() docstore.Store {
			require.NoError(t, pg.TruncateTables(context.Background(), "documents"))
			return postgres.New(pg.DB)
		},
	})
}
