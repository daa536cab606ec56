package web

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/hpungsan/cassettes/internal/catalog"
	"github.com/hpungsan/cassettes/internal/errors"
	"github.com/hpungsan/cassettes/internal/tape"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	catalog  *catalog.Catalog
	renderer *Renderer
}

// HandleList handles GET /tapes: the searchable list.
// Each request gets its own filter, so search terms are never shared.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	f := catalog.NewFilter(h.catalog)
	f.SetTerm(query)
	items := f.View()
	count := h.catalog.Count()

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{
			"items":  items,
			"term":   query,
			"count":  count,
			"status": catalog.StatusText(count),
		})
		return
	}

	data := ListPageData{
		PageData:  h.renderer.page("Cassettes", "tapes"),
		Items:     items,
		Query:     query,
		Filtering: f.Filtering(),
		Count:     count,
		Status:    catalog.StatusText(count),
	}

	// Search-as-you-type swaps only the results
	if r.Header.Get("HX-Target") == "results" {
		h.renderer.renderBlock(w, r, http.StatusOK, "list", "results", data)
		return
	}
	h.renderer.renderPage(w, r, "list", data)
}

// HandleNew handles GET /tapes/new: the empty add dialog.
func (h *Handlers) HandleNew(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, "form", FormPageData{
		PageData: h.renderer.page("Ajouter une cassette", "new"),
		IsNew:    true,
	})
}

// HandleCreate handles POST /tapes: add a tape.
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewValidation("invalid form data"))
		return
	}
	title, label := r.PostFormValue("title"), r.PostFormValue("tape")

	if err := h.catalog.Add(r.Context(), title, label); err != nil {
		h.formError(w, r, err, FormPageData{
			PageData: h.renderer.page("Ajouter une cassette", "new"),
			Tape:     tape.Tape{Title: title, Tape: label},
			IsNew:    true,
		})
		return
	}

	h.done(w, r, http.StatusCreated)
}

// HandleEdit handles GET /tapes/{id}: the edit dialog, pre-filled from
// the loaded list. A stale id means the selection is no longer valid.
func (h *Handlers) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	t, ok := h.catalog.CurrentRecord(id)
	if !ok {
		h.renderer.renderError(w, r, errors.NewNotFound(id))
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, t)
		return
	}

	h.renderer.renderPage(w, r, "form", FormPageData{
		PageData: h.renderer.page(t.Title, "tapes"),
		Tape:     t,
	})
}

// HandleSave handles POST /tapes/{id}: edit a tape.
func (h *Handlers) HandleSave(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewValidation("invalid form data"))
		return
	}
	title, label := r.PostFormValue("title"), r.PostFormValue("tape")

	if err := h.catalog.Edit(r.Context(), id, title, label); err != nil {
		current, _ := h.catalog.CurrentRecord(id)
		h.formError(w, r, err, FormPageData{
			PageData: h.renderer.page(current.Title, "tapes"),
			Tape:     tape.Tape{ID: id, Title: title, Tape: label, CreatedAt: current.CreatedAt},
		})
		return
	}

	h.done(w, r, http.StatusOK)
}

// HandleDelete handles DELETE /tapes/{id} and POST /tapes/{id}/delete.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if err := h.catalog.Delete(r.Context(), id); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.done(w, r, http.StatusOK)
}

// HandleHelp handles GET /help.
func (h *Handlers) HandleHelp(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, "help", HelpPageData{
		PageData: h.renderer.page("Aide", "help"),
		Content:  h.renderer.help,
	})
}

// formError re-renders the dialog for validation failures in HTML mode;
// everything else goes through renderError.
func (h *Handlers) formError(w http.ResponseWriter, r *http.Request, err error, data FormPageData) {
	var cErr *errors.CatalogError
	if wantsJSON(r) || !stderrors.As(err, &cErr) || cErr.Code != errors.ErrValidation {
		h.renderer.renderError(w, r, err)
		return
	}
	data.Error = cErr.Message
	if field, ok := cErr.Details["field"].(string); ok {
		data.Field = field
	}
	h.renderer.renderPageStatus(w, r, http.StatusBadRequest, "form", data)
}

// done answers a successful mutation: htmx clients are redirected via
// header, JSON clients get the new status line, browsers go back to the list.
func (h *Handlers) done(w http.ResponseWriter, r *http.Request, status int) {
	if isHX(r) {
		w.Header().Set("HX-Redirect", "/tapes")
		w.WriteHeader(http.StatusOK)
		return
	}
	if wantsJSON(r) {
		count := h.catalog.Count()
		renderJSON(w, status, map[string]any{
			"count":  count,
			"status": catalog.StatusText(count),
		})
		return
	}
	http.Redirect(w, r, "/tapes", http.StatusSeeOther)
}

// parseID reads the {id} path value.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewValidation("id must be a positive integer")
	}
	return id, nil
}
