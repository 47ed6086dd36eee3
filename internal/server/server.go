package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"ecosort/internal/config"
	"ecosort/internal/domain"
	"ecosort/internal/engine"
	"ecosort/internal/engine/auth"
	"ecosort/internal/logging"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
	Logger   *logrus.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"insufficient_balance"`
	Message string         `json:"message" example:"insufficient points"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"page\":\"waste-log\"}"`
}

type requestKey struct{}
type bodyBytesKey struct{}
type actorSlotKey struct{}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the ecosort API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	if cfg.Auth.Logger == nil {
		cfg.Auth.Logger = log
	}
	e := cfg.Engine
	if e.Config == nil {
		e.Config = config.Default()
	}

	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(requestLogger(log))
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   e.Config.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			ctx = context.WithValue(ctx, bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	if e.Metrics != nil {
		router.Handle("/metrics", e.Metrics.Handler())
	}

	hcfg := huma.DefaultConfig("ecosort API", "1.0.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerLedger(group, e)
	registerAwards(group, e)
	registerWaste(group, e)
	registerAudit(group, e)
	registerHistory(group, e)
	registerAccess(group, e)
	registerMe(group, e)
	if e.Config.Server.DevLogin {
		registerDevAuth(group, cfg.Auth)
	}
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func requestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			var actor string
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), actorSlotKey{}, &actor)))
			log.WithFields(logging.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
				"actor":       actor,
			}).Info("request")
		})
	}
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var se huma.StatusError
	if errors.As(err, &se) {
		return se
	}
	var fe auth.ForbiddenError
	if errors.As(err, &fe) {
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), map[string]any{"page": fe.Page})
	}
	var de *domain.AlreadyDeletedError
	if errors.As(err, &de) {
		return newAPIError(http.StatusConflict, "already_deleted", err.Error(), map[string]any{
			"id":         de.ID,
			"deleted_at": de.DeletedAt,
			"deleted_by": de.DeletedBy,
		})
	}
	msg := err.Error()
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", msg, nil)
	case errors.Is(err, domain.ErrAlreadyConsumed):
		return newAPIError(http.StatusConflict, "already_consumed", msg, nil)
	case errors.Is(err, domain.ErrInsufficientBalance):
		return newAPIError(http.StatusUnprocessableEntity, "insufficient_balance", msg, nil)
	case errors.Is(err, domain.ErrDuplicateToken):
		return newAPIError(http.StatusConflict, "duplicate_token", msg, nil)
	case errors.Is(err, domain.ErrConflict):
		return newAPIError(http.StatusConflict, "conflict", msg, nil)
	case errors.Is(err, domain.ErrTransactionAborted):
		return newAPIError(http.StatusServiceUnavailable, "transaction_aborted", "transaction aborted, retry the request", map[string]any{"retryable": true})
	case errors.Is(err, domain.ErrInvalidInput):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

// targetAccount resolves the account a read is about. Callers may read their
// own records; anyone else's needs page. An empty request means every
// account for callers holding page and the caller otherwise.
func targetAccount(ctx context.Context, e engine.Engine, requested, page string) (string, error) {
	p, authErr := principalFromRequest(ctx)
	if authErr != nil {
		return "", authErr
	}
	requested = strings.TrimSpace(requested)
	if requested == p.ActorID {
		return requested, nil
	}
	if requested == "" {
		ok, err := e.Auth.RoleCanAccess(ctx, p.Role, page)
		if err != nil {
			return "", err
		}
		if !ok {
			return p.ActorID, nil
		}
		return "", nil
	}
	if err := e.Auth.Require(ctx, p.Role, page); err != nil {
		return "", err
	}
	return requested, nil
}

func registerDocs(r chi.Router, basePath string) {
	r.Get(path.Join(basePath, "docs"), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["cookieAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "cookie",
		Name: TokenCookie,
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"cookieAuth": {}},
	}
	oas.Security = security
	open := map[string]bool{
		path.Join("/", basePath, "health"):         true,
		path.Join("/", basePath, "auth/dev/login"): true,
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if open[route] {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>ecosort API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or the token cookie.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerLedger(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "collect",
		Method:      http.MethodPost,
		Path:        "/award/collect",
		Summary:     "Collect the points of a scanned waste item",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		Body CollectRequest `json:"body"`
	}) (*struct {
		Body engine.CollectResult `json:"body"`
	}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := e.Collect(ctx, p.ActorID, input.Body.WasteID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.CollectResult `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "redeem",
		Method:      http.MethodPost,
		Path:        "/award/redeem",
		Summary:     "Spend points on an award",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		Body RedeemRequest `json:"body"`
	}) (*struct {
		Body engine.RedeemResult `json:"body"`
	}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := e.Redeem(ctx, engine.RedeemOptions{
			ActorID:   p.ActorID,
			ActorRole: p.Role,
			AccountID: input.Body.UserID,
			AwardID:   input.Body.AwardID,
			Token:     input.Body.BarcodeID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.RedeemResult `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "rank-accounts",
		Method:      http.MethodGet,
		Path:        "/award/users",
		Summary:     "Rank eligible accounts by points",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Month string `query:"month" doc:"YYYY-MM; all-time balances when empty"`
	}) (*struct {
		Body RankingResponse `json:"body"`
	}, error) {
		if _, authErr := principalFromRequest(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.RankAccounts(ctx, engine.RankScope{Month: input.Month})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RankingResponse `json:"body"`
		}{Body: RankingResponse{Month: input.Month, Items: nonNilSlice(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "account-points",
		Method:      http.MethodGet,
		Path:        "/award/user/{id}",
		Summary:     "Public points of one account",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body engine.AccountPoints `json:"body"`
	}, error) {
		if _, authErr := principalFromRequest(ctx); authErr != nil {
			return nil, authErr
		}
		res, err := e.AccountPoints(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.AccountPoints `json:"body"`
		}{Body: res}, nil
	})
}

func registerAwards(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-awards",
		Method:      http.MethodGet,
		Path:        "/award/catalog",
		Summary:     "List the award catalog",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Award `json:"body"`
	}, error) {
		if _, authErr := principalFromRequest(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.ListAwards(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Award `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-award",
		Method:        http.MethodPost,
		Path:          "/award",
		Summary:       "Create an award",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body AwardRequest `json:"body"`
	}) (*struct {
		Body domain.Award `json:"body"`
	}, error) {
		p, err := requirePage(ctx, e, config.PageAward)
		if err != nil {
			return nil, handleError(err)
		}
		a, err := e.SaveAward(ctx, p.ActorID, engine.AwardInput{Name: input.Body.Name, Cost: input.Body.Cost})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Award `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-award",
		Method:      http.MethodPut,
		Path:        "/award/{id}",
		Summary:     "Update an award",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string       `path:"id"`
		Body AwardRequest `json:"body"`
	}) (*struct {
		Body domain.Award `json:"body"`
	}, error) {
		p, err := requirePage(ctx, e, config.PageAward)
		if err != nil {
			return nil, handleError(err)
		}
		a, err := e.SaveAward(ctx, p.ActorID, engine.AwardInput{ID: input.ID, Name: input.Body.Name, Cost: input.Body.Cost})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Award `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-award",
		Method:        http.MethodDelete,
		Path:          "/award/{id}",
		Summary:       "Delete an award",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		p, err := requirePage(ctx, e, config.PageAward)
		if err != nil {
			return nil, handleError(err)
		}
		if err := e.DeleteAward(ctx, p.ActorID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "redeem-history",
		Method:      http.MethodGet,
		Path:        "/award/redeem-history",
		Summary:     "List redemptions",
		Description: "Without userId the most recent redemptions across accounts are returned.",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		UserID string `query:"userId"`
		Limit  int    `query:"limit"`
	}) (*struct {
		Body []domain.RedemptionRecord `json:"body"`
	}, error) {
		account, err := targetAccount(ctx, e, input.UserID, config.PageRedeem)
		if err != nil {
			return nil, handleError(err)
		}
		items, err := e.Redemptions(ctx, account, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.RedemptionRecord `json:"body"`
		}{Body: items}, nil
	})
}

func registerWaste(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "waste-log",
		Method:      http.MethodGet,
		Path:        "/waste",
		Summary:     "Active waste items with their claimant",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []engine.WasteLogEntry `json:"body"`
	}, error) {
		if _, err := requirePage(ctx, e, config.PageWasteLog); err != nil {
			return nil, handleError(err)
		}
		items, err := e.WasteLog(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []engine.WasteLogEntry `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-waste",
		Method:      http.MethodGet,
		Path:        "/waste/all",
		Summary:     "List waste items newest first",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		IncludeDeleted bool `query:"includeDeleted"`
		Limit          int  `query:"limit"`
	}) (*struct {
		Body []engine.WasteView `json:"body"`
	}, error) {
		if _, err := requirePage(ctx, e, config.PageWasteLog); err != nil {
			return nil, handleError(err)
		}
		items, err := e.ListWaste(ctx, input.IncludeDeleted, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []engine.WasteView `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "waste-summary",
		Method:      http.MethodGet,
		Path:        "/waste/summary",
		Summary:     "Recyclable and non-recyclable counts",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body engine.WasteSummary `json:"body"`
	}, error) {
		if _, authErr := principalFromRequest(ctx); authErr != nil {
			return nil, authErr
		}
		s, err := e.Summarize(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.WasteSummary `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "user-collections",
		Method:      http.MethodGet,
		Path:        "/waste/user-history",
		Summary:     "Collections of the caller",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []engine.CollectionView `json:"body"`
	}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.UserCollections(ctx, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []engine.CollectionView `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-waste",
		Method:      http.MethodGet,
		Path:        "/waste/{id}",
		Summary:     "Get one waste item",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body engine.WasteView `json:"body"`
	}, error) {
		if _, authErr := principalFromRequest(ctx); authErr != nil {
			return nil, authErr
		}
		v, err := e.GetWaste(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.WasteView `json:"body"`
		}{Body: v}, nil
	})
}

func registerAudit(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "deleted-waste",
		Method:      http.MethodGet,
		Path:        "/waste/deleted",
		Summary:     "List soft-deleted waste items",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		DateFrom string `query:"dateFrom" doc:"YYYY-MM-DD"`
		DateTo   string `query:"dateTo" doc:"YYYY-MM-DD"`
		User     string `query:"user" doc:"Account that deleted the item"`
	}) (*struct {
		Body []engine.WasteView `json:"body"`
	}, error) {
		if _, err := requirePage(ctx, e, config.PageWasteLog); err != nil {
			return nil, handleError(err)
		}
		items, err := e.QueryDeleted(ctx, engine.DeletedQuery{DateFrom: input.DateFrom, DateTo: input.DateTo, DeletedBy: input.User})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []engine.WasteView `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-waste-by-date",
		Method:      http.MethodDelete,
		Path:        "/waste/by-date/{date}",
		Summary:     "Soft-delete every item created on a day",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		Date string `path:"date" doc:"YYYY-MM-DD"`
	}) (*struct {
		Body BulkDeleteResponse `json:"body"`
	}, error) {
		p, err := requirePage(ctx, e, config.PageWasteLog)
		if err != nil {
			return nil, handleError(err)
		}
		res, err := e.SoftDeleteByDate(ctx, p.ActorID, input.Date)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body BulkDeleteResponse `json:"body"`
		}{Body: BulkDeleteResponse{
			Message:          fmt.Sprintf("%d of %d items soft-deleted", res.NewlyDeleted, res.Total),
			BulkDeleteResult: res,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-waste",
		Method:      http.MethodDelete,
		Path:        "/waste/{id}",
		Summary:     "Soft-delete a waste item",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusConflict, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body DeleteResponse `json:"body"`
	}, error) {
		p, err := requirePage(ctx, e, config.PageWasteLog)
		if err != nil {
			return nil, handleError(err)
		}
		res, err := e.SoftDelete(ctx, p.ActorID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DeleteResponse `json:"body"`
		}{Body: DeleteResponse{Message: "waste item soft-deleted", DeleteResult: res}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "restore-waste",
		Method:      http.MethodPatch,
		Path:        "/waste/{id}/restore",
		Summary:     "Restore a soft-deleted waste item",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body RestoreResponse `json:"body"`
	}, error) {
		p, err := requirePage(ctx, e, config.PageWasteLog)
		if err != nil {
			return nil, handleError(err)
		}
		res, err := e.Restore(ctx, p.ActorID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RestoreResponse `json:"body"`
		}{Body: RestoreResponse{Message: "waste item restored", RestoreResult: res}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Recent audit events",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		EntityKind string `query:"entity_kind"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50"`
	}) (*struct {
		Body EventsResponse `json:"body"`
	}, error) {
		if _, err := requirePage(ctx, e, config.PageWasteLog); err != nil {
			return nil, handleError(err)
		}
		items, err := e.AuditTrail(ctx, input.EntityKind, input.EntityID, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body EventsResponse `json:"body"`
		}{Body: EventsResponse{Items: nonNilSlice(items)}}, nil
	})
}

func registerHistory(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "history",
		Method:      http.MethodGet,
		Path:        "/history",
		Summary:     "Collections and redemptions, newest first",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		UserID string `query:"userId"`
		Limit  int    `query:"limit"`
		Kind   string `query:"kind" doc:"collection or redemption"`
	}) (*struct {
		Body HistoryResponse `json:"body"`
	}, error) {
		account, err := targetAccount(ctx, e, input.UserID, config.PageRedeem)
		if err != nil {
			return nil, handleError(err)
		}
		items, err := e.History(ctx, engine.HistoryQuery{AccountID: account, Limit: input.Limit, Kind: engine.HistoryKind(input.Kind)})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body HistoryResponse `json:"body"`
		}{Body: HistoryResponse{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reconcile",
		Method:      http.MethodGet,
		Path:        "/accounts/{id}/reconcile",
		Summary:     "Compare a stored balance with its history",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body engine.Reconciliation `json:"body"`
	}, error) {
		account, err := targetAccount(ctx, e, input.ID, config.PageRedeem)
		if err != nil {
			return nil, handleError(err)
		}
		r, err := e.ReconcileBalance(ctx, account)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.Reconciliation `json:"body"`
		}{Body: r}, nil
	})
}

func registerAccess(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-roles",
		Method:      http.MethodGet,
		Path:        "/access/roles",
		Summary:     "Roles and their pages",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body RolesResponse `json:"body"`
	}, error) {
		if _, err := requirePage(ctx, e, config.PageAccess); err != nil {
			return nil, handleError(err)
		}
		roles, err := e.Repo.ListRoles(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RolesResponse `json:"body"`
		}{Body: RolesResponse{Items: nonNilSlice(roles)}}, nil
	})
}

func registerMe(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current principal",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body MeResponse `json:"body"`
	}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		pages, err := e.Auth.RolePages(ctx, p.Role)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MeResponse `json:"body"`
		}{Body: MeResponse{UserID: p.ActorID, Email: p.Email, Role: p.Role, Pages: nonNilSlice(pages)}}, nil
	})
}

func registerDevAuth(api huma.API, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "DEV ONLY: mint a JWT for local testing",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest `json:"body"`
	}) (*struct {
		Body DevLoginResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		user := strings.TrimSpace(input.Body.UserID)
		role := strings.TrimSpace(input.Body.Role)
		if user == "" || role == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "user_id and role are required", nil)
		}
		token, err := SignToken(authCfg.JWTSecret, user, strings.TrimSpace(input.Body.Email), role, authCfg.ttl())
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		authCfg.logger().WithField("user_id", user).WithField("role", role).Warn("issued dev login token")
		return &struct {
			Body DevLoginResponse `json:"body"`
		}{Body: DevLoginResponse{Token: token}}, nil
	})
}

func bodyBytes(ctx context.Context) []byte {
	if buf, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return buf
	}
	req, ok := ctx.Value(requestKey{}).(*http.Request)
	if !ok || req == nil {
		return nil
	}
	data, _ := io.ReadAll(req.Body)
	return data
}
