package router

import (
	"context"
	"database/sql"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/jmjalil96/CotizateAlgo/docs"
	sup "github.com/jmjalil96/CotizateAlgo/internal/adapters/auth/supabase"
	mem "github.com/jmjalil96/CotizateAlgo/internal/adapters/storage/memory"
	pg "github.com/jmjalil96/CotizateAlgo/internal/adapters/storage/postgres"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/accounts"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/authz"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/brokers"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/clients"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/invitations"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/rbac"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/users"
	"github.com/jmjalil96/CotizateAlgo/internal/middleware"
	"github.com/jmjalil96/CotizateAlgo/internal/platform/logger"
	"github.com/jmjalil96/CotizateAlgo/internal/ports/auth"
	"github.com/jmjalil96/CotizateAlgo/internal/ports/storage"
)

type Options struct {
	// Provider externo de identidad. Puede ser nil: modo dev, la identidad
	// llega por el header X-Debug-User-ID.
	AuthProvider auth.AuthProvider

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	// Secreto para firmar tokens de invitación. Vacío: toma INVITE_SIGNING_SECRET.
	InviteSecret []byte

	Logger logger.Logger
}

// NewRouter arma todo el árbol de dependencias y rutas. Con DB nil y sin
// DB_DSN corre in-memory, con el set semilla de roles y permisos cargado.
func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.NewFromEnv()
	}

	secret := opts.InviteSecret
	if len(secret) == 0 {
		secret = []byte(os.Getenv("INVITE_SIGNING_SECRET"))
	}
	if len(secret) == 0 {
		// Solo aceptable en dev; en prod el secreto viene por env.
		secret = []byte("dev-invite-secret")
	}

	provider := opts.AuthProvider
	if provider == nil {
		if c, err := sup.NewClientFromEnv(); err == nil && c != nil {
			provider = c
		}
	}

	var (
		brokersRepo     brokers.Repository
		usersRepo       users.Repository
		rbacRepo        rbac.Repository
		invitationsRepo invitations.Repository
		clientsRepo     clients.Repository
		txm             storage.TxManager
	)

	// Si no te pasan DB explícita, intenta por env (para dev/handoff)
	db := opts.DB
	if db == nil {
		if dsn := os.Getenv("DB_DSN"); dsn != "" {
			opened, err := pg.Open(dsn)
			if err == nil {
				db = opened
			} else {
				log.Warn("db open failed, falling back to memory", map[string]any{"error": err.Error()})
			}
		}
	}

	seedRBAC := false
	if db != nil {
		brokersRepo = pg.NewBrokersRepo(db)
		usersRepo = pg.NewUsersRepo(db)
		rbacRepo = pg.NewRBACRepo(db)
		invitationsRepo = pg.NewInvitationsRepo(db)
		clientsRepo = pg.NewClientsRepo(db)
		txm = pg.NewTxManager(db)
	} else {
		store := mem.NewStore()
		brokersRepo = mem.NewBrokersRepo(store)
		usersRepo = mem.NewUsersRepo(store)
		rbacRepo = mem.NewRBACRepo(store)
		invitationsRepo = mem.NewInvitationsRepo(store)
		clientsRepo = mem.NewClientsRepo(store)
		txm = store
		seedRBAC = true
	}

	// Services por módulo
	brokersSvc := brokers.NewService(brokersRepo)
	usersSvc := users.NewService(usersRepo)
	rbacSvc := rbac.NewService(rbacRepo, txm)
	engine := rbac.NewEngine(rbacRepo, usersSvc, brokersSvc)
	authzSvc := authz.NewService(engine, rbacSvc, usersSvc, authz.NewLoggerSink(log))

	signer := invitations.NewTokenSigner(secret)
	invitationsSvc := invitations.NewService(invitationsRepo, brokersSvc, usersSvc, rbacSvc, provider, signer, txm)
	accountsSvc := accounts.NewService(brokersSvc, usersSvc, rbacSvc, provider, txm)
	clientsSvc := clients.NewService(clientsRepo)

	if seedRBAC {
		// El set semilla de roles/permisos en memoria se pierde con el
		// proceso; en Postgres lo carga la migración.
		if err := rbac.Seed(context.Background(), rbacSvc); err != nil {
			log.Error("rbac seed failed", map[string]any{"error": err.Error()})
		}
	}

	var verifier auth.AuthVerifier
	if provider != nil {
		verifier = provider
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.AuthContext(verifier, &authInfoBuilder{
		users:   usersSvc,
		engine:  engine,
		brokers: brokersSvc,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// Rutas por módulo
	accounts.RegisterRoutes(r, accountsSvc)
	brokers.RegisterRoutes(r, brokersSvc)
	rbac.RegisterRoutes(r, rbacSvc)
	authz.RegisterRoutes(r, authzSvc, usersSvc, rbacSvc, engine)
	invitations.RegisterRoutes(r, invitationsSvc)
	clients.RegisterRoutes(r, clientsSvc, engine)

	return r
}
