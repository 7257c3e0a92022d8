package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/auth"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/config"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/storage"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
)

var defaultSteps = []string{"Novo", "Qualificando", "Proposta", "Fechado"}

// stableID derives the same id for the same tenant and key on every run.
func stableID(slug, key string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("daisi-wa-crm/"+slug+"/"+key)).String()
}

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	slug := flag.String("slug", "demo", "Company slug")
	name := flag.String("name", "Demo Company", "Company name")
	session := flag.String("session", "Sessao_01", "Provider session name of the channel account")
	adminEmail := flag.String("admin-email", "admin@demo.local", "Admin user email")
	agentEmail := flag.String("agent-email", "agent@demo.local", "Agent user email")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the printed access token")
	flag.Parse()

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	repo, err := storage.NewPostgresRepo(cfg.Database.PostgresDSN, true, 2)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}
	defer func() { _ = repo.Close(context.Background()) }()

	companyID := stableID(*slug, "company")
	admin := model.User{ID: stableID(*slug, "user/"+*adminEmail), CompanyID: companyID, Name: "Admin", Email: *adminEmail, Role: model.UserRoleAdmin}
	agent := model.User{ID: stableID(*slug, "user/"+*agentEmail), CompanyID: companyID, Name: "Agent", Email: *agentEmail, Role: model.UserRoleAgent}

	funnel := model.Funnel{ID: stableID(*slug, "funnel/default"), CompanyID: companyID, Name: "Vendas", IsDefault: true}
	for i, stepName := range defaultSteps {
		funnel.Steps = append(funnel.Steps, model.FunnelStep{
			ID:       stableID(*slug, "funnel/default/"+stepName),
			FunnelID: funnel.ID,
			Name:     stepName,
			Order:    i + 1,
		})
	}

	seed := storage.TenantSeed{
		Company: model.Company{ID: companyID, Slug: *slug, Name: *name},
		Users:   []model.User{admin, agent},
		Accounts: []model.ChannelAccount{{
			ID:          stableID(*slug, "channel/"+*session),
			CompanyID:   companyID,
			SessionName: *session,
			Status:      model.ConnectionDisconnected,
		}},
		Funnel: funnel,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := repo.SeedTenant(ctx, seed); err != nil {
		logger.Log.Fatal("Failed to seed tenant", zap.Error(err))
	}

	logger.Log.Info("Tenant seeded",
		zap.String("company_id", companyID),
		zap.String("session", *session),
		zap.Strings("steps", defaultSteps),
	)

	if cfg.Auth.JWTSecret == "" {
		logger.Log.Warn("JWT secret not configured, skipping token")
		return
	}
	for _, u := range []model.User{admin, agent} {
		token, err := auth.Sign(cfg.Auth.JWTSecret, u.ID, companyID, *tokenTTL)
		if err != nil {
			logger.Log.Fatal("Failed to sign token", zap.Error(err))
		}
		fmt.Printf("%s (%s): %s\n", u.Email, u.Role, token)
	}
}
