package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fomet/fomet/internal/recordstore"
	"github.com/fomet/fomet/internal/shared"
	"github.com/fomet/fomet/internal/view"
)

const dashboardPath = "/dashboard"

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers the login page on r and the auth actions under /auth.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.showLogin)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.handleLogin)
		r.Post("/logout", h.handleLogout)
	})
}

type loginForm struct {
	Username string `validate:"required,max=100"`
	Password string `validate:"required,max=200"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if shared.PrincipalFromContext(r.Context()) != nil {
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, loginPageData{})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())

	form := loginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fieldErr := range fieldErrs {
				errs[fieldErr.Field()] = "Wajib diisi"
			}
		}
	}
	if len(errs) > 0 {
		errs["general"] = "Unit dan password wajib diisi"
		h.renderLogin(w, r, http.StatusBadRequest, loginPageData{Form: loginForm{Username: form.Username}, Errors: errs})
		return
	}

	principal, err := h.service.Authenticate(r.Context(), form.Username, form.Password)
	if err != nil {
		status := http.StatusBadRequest
		message := "Unit atau password salah"
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			h.logger.Error("login backend", slog.Any("error", err))
			status = http.StatusBadGateway
			message = recordstore.UserMessage(err, "Terjadi kesalahan, coba lagi")
		}
		errs["general"] = message
		h.renderLogin(w, r, status, loginPageData{Form: loginForm{Username: form.Username}, Errors: errs})
		return
	}

	if sess == nil {
		h.logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	sess.Rotate()
	h.csrfManager.RotateToken(sess)
	sess.SetPrincipal(&principal)
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Login Berhasil"})
	h.logger.Info("login", slog.String("username", principal.Username), slog.String("role", principal.Role), slog.String("unit", principal.Unit))
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data loginPageData) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Masuk",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
	}
}

// ShowLoginForTest exposes the GET handler for tests.
func (h *Handler) ShowLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.showLogin(w, r)
}

// HandleLoginForTest exposes the POST handler for tests.
func (h *Handler) HandleLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}

// HandleLogoutForTest exposes the logout handler for tests.
func (h *Handler) HandleLogoutForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogout(w, r)
}
