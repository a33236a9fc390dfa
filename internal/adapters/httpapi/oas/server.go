package oas

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// ServerInterface is implemented by the HTTP adapter. Parameters arrive bound and typed.
type ServerInterface interface {
	// (POST /registrations)
	Register(w http.ResponseWriter, r *http.Request, params RegisterParams)
	// (GET /members/{memberNumber}/status)
	GetMemberStatus(w http.ResponseWriter, r *http.Request, memberNumber string)
	// (GET /members/{memberNumber}/card)
	DownloadMemberCard(w http.ResponseWriter, r *http.Request, memberNumber string)

	// (GET /admin/members)
	AdminListMembers(w http.ResponseWriter, r *http.Request, params AdminListMembersParams)
	// (GET /admin/members/{memberId})
	AdminGetMember(w http.ResponseWriter, r *http.Request, memberId openapi_types.UUID)
	// (DELETE /admin/members/{memberId})
	AdminDeleteMember(w http.ResponseWriter, r *http.Request, memberId openapi_types.UUID)
	// (POST /admin/members/{memberId}/approve)
	AdminApproveMember(w http.ResponseWriter, r *http.Request, memberId openapi_types.UUID)
	// (POST /admin/members/{memberId}/reject)
	AdminRejectMember(w http.ResponseWriter, r *http.Request, memberId openapi_types.UUID)
	// (POST /admin/members/{memberId}/suspend)
	AdminSuspendMember(w http.ResponseWriter, r *http.Request, memberId openapi_types.UUID)
	// (POST /admin/members/{memberId}/reactivate)
	AdminReactivateMember(w http.ResponseWriter, r *http.Request, memberId openapi_types.UUID)
	// (POST /admin/members/{memberId}/card)
	AdminRegenerateCard(w http.ResponseWriter, r *http.Request, memberId openapi_types.UUID)
	// (GET /admin/stats)
	AdminGetStats(w http.ResponseWriter, r *http.Request)
}

// InvalidParamFormatError reports a parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// ServerInterfaceWrapper binds parameters and dispatches to Handler.
type ServerInterfaceWrapper struct {
	Handler          ServerInterface
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *ServerInterfaceWrapper) Register(w http.ResponseWriter, r *http.Request) {
	var params RegisterParams
	if values := r.Header.Values("Idempotency-Key"); len(values) > 0 {
		var key string
		err := runtime.BindStyledParameterWithOptions("simple", "Idempotency-Key", values[0], &key,
			runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationHeader, Explode: false, Required: false})
		if err != nil {
			siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "Idempotency-Key", Err: err})
			return
		}
		params.IdempotencyKey = &key
	}
	siw.Handler.Register(w, r, params)
}

func (siw *ServerInterfaceWrapper) GetMemberStatus(w http.ResponseWriter, r *http.Request) {
	n, ok := siw.memberNumber(w, r)
	if !ok {
		return
	}
	siw.Handler.GetMemberStatus(w, r, n)
}

func (siw *ServerInterfaceWrapper) DownloadMemberCard(w http.ResponseWriter, r *http.Request) {
	n, ok := siw.memberNumber(w, r)
	if !ok {
		return
	}
	siw.Handler.DownloadMemberCard(w, r, n)
}

func (siw *ServerInterfaceWrapper) AdminListMembers(w http.ResponseWriter, r *http.Request) {
	var params AdminListMembersParams
	if err := runtime.BindQueryParameter("form", true, false, "status", r.URL.Query(), &params.Status); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "status", Err: err})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "q", r.URL.Query(), &params.Q); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "q", Err: err})
		return
	}
	siw.Handler.AdminListMembers(w, r, params)
}

func (siw *ServerInterfaceWrapper) AdminGetStats(w http.ResponseWriter, r *http.Request) {
	siw.Handler.AdminGetStats(w, r)
}

func (siw *ServerInterfaceWrapper) memberNumber(w http.ResponseWriter, r *http.Request) (string, bool) {
	var n string
	err := runtime.BindStyledParameterWithOptions("simple", "memberNumber", chi.URLParam(r, "memberNumber"), &n,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "memberNumber", Err: err})
		return "", false
	}
	return n, true
}

// withMemberID binds the memberId path parameter before calling h.
func (siw *ServerInterfaceWrapper) withMemberID(h func(http.ResponseWriter, *http.Request, openapi_types.UUID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var id openapi_types.UUID
		err := runtime.BindStyledParameterWithOptions("simple", "memberId", chi.URLParam(r, "memberId"), &id,
			runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
		if err != nil {
			siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "memberId", Err: err})
			return
		}
		h(w, r, id)
	}
}

type MiddlewareFunc func(http.Handler) http.Handler

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseRouter chi.Router
	// RegistrationMiddlewares wrap POST /registrations only.
	RegistrationMiddlewares []MiddlewareFunc
	// AdminMiddlewares wrap every /admin route.
	AdminMiddlewares []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerFromMux mounts si on r with default options.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{BaseRouter: r})
}

func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{Handler: si, ErrorHandlerFunc: options.ErrorHandlerFunc}

	r.With(chiMiddlewares(options.RegistrationMiddlewares)...).Post("/registrations", wrapper.Register)
	r.Get("/members/{memberNumber}/status", wrapper.GetMemberStatus)
	r.Get("/members/{memberNumber}/card", wrapper.DownloadMemberCard)

	r.Group(func(r chi.Router) {
		r.Use(chiMiddlewares(options.AdminMiddlewares)...)
		r.Get("/admin/members", wrapper.AdminListMembers)
		r.Get("/admin/members/{memberId}", wrapper.withMemberID(si.AdminGetMember))
		r.Delete("/admin/members/{memberId}", wrapper.withMemberID(si.AdminDeleteMember))
		r.Post("/admin/members/{memberId}/approve", wrapper.withMemberID(si.AdminApproveMember))
		r.Post("/admin/members/{memberId}/reject", wrapper.withMemberID(si.AdminRejectMember))
		r.Post("/admin/members/{memberId}/suspend", wrapper.withMemberID(si.AdminSuspendMember))
		r.Post("/admin/members/{memberId}/reactivate", wrapper.withMemberID(si.AdminReactivateMember))
		r.Post("/admin/members/{memberId}/card", wrapper.withMemberID(si.AdminRegenerateCard))
		r.Get("/admin/stats", wrapper.AdminGetStats)
	})
	return r
}

func chiMiddlewares(mws []MiddlewareFunc) []func(http.Handler) http.Handler {
	out := make([]func(http.Handler) http.Handler, 0, len(mws))
	for _, mw := range mws {
		out = append(out, mw)
	}
	return out
}
