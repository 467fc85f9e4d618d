package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/serroba/acdocs/internal/acl"
	"github.com/serroba/acdocs/internal/model"
	"github.com/serroba/acdocs/internal/storage"
)

// DocumentRequest is the request body for creating or updating a document.
// On update, zero-valued fields are left unchanged.
type DocumentRequest struct {
	Name            string     `json:"name"`
	FileName        string     `json:"fileName"`
	FileSize        int64      `json:"fileSize"`
	MimeType        string     `json:"mimeType"`
	CategoryID      string     `json:"categoryId"`
	DocumentTypeID  string     `json:"documentTypeId"`
	ExpiresAt       *time.Time `json:"expiresAt"`
	AlertDaysBefore int        `json:"alertDaysBefore"`
}

// DocumentResponse is a document with its expiration status.
type DocumentResponse struct {
	model.Document

	ExpirationStatus    model.Expiration `json:"expirationStatus"`
	DaysUntilExpiration *int             `json:"daysUntilExpiration,omitempty"`
}

func documentResponse(d model.Document, now time.Time) DocumentResponse {
	resp := DocumentResponse{
		Document:         d,
		ExpirationStatus: model.ExpirationStatus(d.ExpiresAt, now),
	}

	if days, ok := model.DaysUntilExpiration(d.ExpiresAt, now); ok {
		resp.DaysUntilExpiration = &days
	}

	return resp
}

var errNotVisible = errors.New("document not visible")

// visibleDocument loads the document named in the route if the session's
// user can see it. Documents outside the accessible set are reported as
// missing so their existence does not leak.
func (s *Server) visibleDocument(r *http.Request) (model.Document, error) {
	user := SessionFromContext(r.Context()).User()
	id := mux.Vars(r)["id"]

	snap, err := storage.LoadSnapshot(r.Context(), s.store)
	if err != nil {
		return model.Document{}, err
	}

	doc, ok := snap.Document(id)
	if !ok {
		return model.Document{}, errNotVisible
	}

	visible := acl.CanAccessDocument(user, doc, snap.Categories, snap.Groups)
	s.metrics.Decision("documents:visible", visible)

	if !visible {
		return model.Document{}, errNotVisible
	}

	return doc, nil
}

// canChange reports whether user may apply action to a document already
// known to be visible: either the role holds the unqualified permission, or
// it holds the ":own" form and the ownership rule allows the change.
func (s *Server) canChange(user model.User, doc model.Document, action string) bool {
	p := acl.NewPermission(acl.ResourceDocuments, action)

	allowed := s.checker.Has(user.Role, p) ||
		(s.checker.Has(user.Role, p.Own()) && acl.CanModifyDocument(user, doc))

	s.metrics.Decision(p.String(), allowed)

	return allowed
}

// handleListDocuments handles GET /documents[?categoryId=].
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	user := SessionFromContext(r.Context()).User()

	snap, err := storage.LoadSnapshot(r.Context(), s.store)
	if err != nil {
		s.internalError(w, "Failed to load documents", err)

		return
	}

	visible := acl.AccessibleDocuments(user, snap.Documents, snap.Categories, snap.Groups)
	categoryID := r.URL.Query().Get("categoryId")
	now := time.Now()
	out := make([]DocumentResponse, 0, len(visible))

	for _, d := range visible {
		if categoryID != "" && d.CategoryID != categoryID {
			continue
		}

		out = append(out, documentResponse(d, now))
	}

	s.metrics.Visible(storage.CollectionDocuments, len(out))
	s.writeJSON(w, http.StatusOK, out)
}

// handleGetDocument handles GET /documents/{id}.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	user := SessionFromContext(r.Context()).User()

	doc, err := s.visibleDocument(r)
	if err != nil {
		if errors.Is(err, errNotVisible) {
			http.Error(w, "document not found", http.StatusNotFound)

			return
		}

		s.internalError(w, "Failed to load document", err)

		return
	}

	if err := s.recorder.Document(r.Context(), user, model.AuditView, doc); err != nil {
		s.internalError(w, "Failed to record view", err)

		return
	}

	s.writeJSON(w, http.StatusOK, documentResponse(doc, time.Now()))
}

// handleCreateDocument handles POST /documents.
func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	user := SessionFromContext(r.Context()).User()

	var req DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)

		return
	}

	if req.Name == "" || req.CategoryID == "" {
		http.Error(w, "name and categoryId are required", http.StatusBadRequest)

		return
	}

	if ok, err := s.categoryVisible(r, user, req.CategoryID); err != nil {
		s.internalError(w, "Failed to load categories", err)

		return
	} else if !ok {
		http.Error(w, "category not found", http.StatusNotFound)

		return
	}

	doc := model.Document{
		Name:            req.Name,
		FileName:        req.FileName,
		FileSize:        req.FileSize,
		MimeType:        req.MimeType,
		CategoryID:      req.CategoryID,
		DocumentTypeID:  req.DocumentTypeID,
		UploadedByID:    user.ID,
		CurrentVersion:  1,
		ExpiresAt:       req.ExpiresAt,
		AlertDaysBefore: req.AlertDaysBefore,
	}

	if doc.ExpiresAt != nil && doc.AlertDaysBefore == 0 {
		doc.AlertDaysBefore = model.DefaultAlertDaysBefore
	}

	created, err := s.store.CreateDocument(r.Context(), doc)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			http.Error(w, "document already exists", http.StatusConflict)

			return
		}

		s.internalError(w, "Failed to create document", err)

		return
	}

	created.Versions = []model.DocumentVersion{{
		ID:           created.ID + "-v1",
		DocumentID:   created.ID,
		Version:      1,
		FileName:     created.FileName,
		FileSize:     created.FileSize,
		UploadedByID: user.ID,
		CreatedAt:    created.CreatedAt,
	}}

	if created, err = s.store.UpdateDocument(r.Context(), created); err != nil {
		s.internalError(w, "Failed to record document version", err)

		return
	}

	if err := s.recorder.Document(r.Context(), user, model.AuditUpload, created); err != nil {
		s.internalError(w, "Failed to record upload", err)

		return
	}

	s.writeJSON(w, http.StatusCreated, documentResponse(created, time.Now()))
}

// handleUpdateDocument handles PUT /documents/{id}.
func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	user := SessionFromContext(r.Context()).User()

	doc, err := s.visibleDocument(r)
	if err != nil {
		if errors.Is(err, errNotVisible) {
			http.Error(w, "document not found", http.StatusNotFound)

			return
		}

		s.internalError(w, "Failed to load document", err)

		return
	}

	if !s.canChange(user, doc, acl.ActionUpdate) {
		http.Error(w, "access denied", http.StatusForbidden)

		return
	}

	var req DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)

		return
	}

	if req.CategoryID != "" && req.CategoryID != doc.CategoryID {
		if ok, err := s.categoryVisible(r, user, req.CategoryID); err != nil {
			s.internalError(w, "Failed to load categories", err)

			return
		} else if !ok {
			http.Error(w, "category not found", http.StatusNotFound)

			return
		}
	}

	applyUpdate(&doc, req, user.ID)

	updated, err := s.store.UpdateDocument(r.Context(), doc)
	if err != nil {
		s.internalError(w, "Failed to update document", err)

		return
	}

	if err := s.recorder.Document(r.Context(), user, model.AuditUpdate, updated); err != nil {
		s.internalError(w, "Failed to record update", err)

		return
	}

	s.writeJSON(w, http.StatusOK, documentResponse(updated, time.Now()))
}

// handleDeleteDocument handles DELETE /documents/{id}.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	user := SessionFromContext(r.Context()).User()

	doc, err := s.visibleDocument(r)
	if err != nil {
		if errors.Is(err, errNotVisible) {
			http.Error(w, "document not found", http.StatusNotFound)

			return
		}

		s.internalError(w, "Failed to load document", err)

		return
	}

	if !s.canChange(user, doc, acl.ActionDelete) {
		http.Error(w, "access denied", http.StatusForbidden)

		return
	}

	if err := s.store.DeleteDocument(r.Context(), doc.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)

			return
		}

		s.internalError(w, "Failed to delete document", err)

		return
	}

	if err := s.recorder.Document(r.Context(), user, model.AuditDelete, doc); err != nil {
		s.internalError(w, "Failed to record delete", err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// categoryVisible reports whether categoryID exists and user can see it.
func (s *Server) categoryVisible(r *http.Request, user model.User, categoryID string) (bool, error) {
	snap, err := storage.LoadSnapshot(r.Context(), s.store)
	if err != nil {
		return false, err
	}

	for _, c := range snap.Categories {
		if c.ID == categoryID {
			return acl.CanAccessCategory(user, c, snap.Groups), nil
		}
	}

	return false, nil
}

// applyUpdate copies the set fields of req onto doc. A new file name starts
// a new version.
func applyUpdate(doc *model.Document, req DocumentRequest, userID string) {
	if req.Name != "" {
		doc.Name = req.Name
	}

	if req.CategoryID != "" {
		doc.CategoryID = req.CategoryID
	}

	if req.DocumentTypeID != "" {
		doc.DocumentTypeID = req.DocumentTypeID
	}

	if req.ExpiresAt != nil {
		doc.ExpiresAt = req.ExpiresAt
	}

	if req.AlertDaysBefore > 0 {
		doc.AlertDaysBefore = req.AlertDaysBefore
	}

	if req.FileName == "" {
		return
	}

	doc.CurrentVersion++
	doc.FileName = req.FileName
	doc.FileSize = req.FileSize
	doc.MimeType = req.MimeType
	doc.Versions = append(doc.Versions, model.DocumentVersion{
		ID:           doc.ID + "-v" + strconv.Itoa(doc.CurrentVersion),
		DocumentID:   doc.ID,
		Version:      doc.CurrentVersion,
		FileName:     req.FileName,
		FileSize:     req.FileSize,
		UploadedByID: userID,
		CreatedAt:    time.Now(),
	})
}
