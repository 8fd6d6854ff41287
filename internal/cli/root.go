// Package cli implements the classsync-admin command tree.
package cli

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/classsync/classsync-api/internal/dto"
	"github.com/classsync/classsync-api/internal/models"
	"github.com/classsync/classsync-api/internal/service"
)

// Migrator runs a goose command such as "up" or "status".
type Migrator func(ctx context.Context, command string, args ...string) error

type adminCreator interface {
	CreateAdmin(ctx context.Context, req service.CreateAdminRequest, actorID string) (*models.User, error)
}

type allowListWriter interface {
	Add(ctx context.Context, req models.CreateAllowedStudentsRequest) ([]models.AllowedStudent, error)
}

type monthlyStats interface {
	Compute(ctx context.Context, year, month int) (*dto.MonthlyStatsResponse, error)
	ComputeCurrent(ctx context.Context) (*dto.MonthlyStatsResponse, error)
	SaveComputed(ctx context.Context, year, month int, notes *string) (*models.MonthlyStat, error)
}

type sessionPruner interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Deps wires the commands to the database-backed services.
type Deps struct {
	Migrate   Migrator
	Admins    adminCreator
	AllowList allowListWriter
	Monthly   monthlyStats
	Sessions  sessionPruner

	// ReadPassword reads a line without echo. Defaults to term.ReadPassword on stdin.
	ReadPassword func() ([]byte, error)
	Now          func() time.Time
}

// NewRootCommand builds the classsync-admin command tree.
func NewRootCommand(deps Deps) *cobra.Command {
	if deps.ReadPassword == nil {
		deps.ReadPassword = func() ([]byte, error) {
			return term.ReadPassword(int(os.Stdin.Fd()))
		}
	}

	if deps.Now == nil {
		deps.Now = time.Now
	}

	root := &cobra.Command{
		Use:           "classsync-admin",
		Short:         "Administrative tasks for a ClassSync deployment",
		SilenceErrors: true,
	}
	root.AddCommand(
		newMigrateCommand(deps),
		newCreateAdminCommand(deps),
		newAllowStudentCommand(deps),
		newMonthlyStatsCommand(deps),
		newPruneSessionsCommand(deps),
	)
	return root
}
