package storage

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"time"

	"github.com/serroba/acdocs/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// DemoSeed is the bundled demo dataset.
//
//go:embed demo_seed.yaml
var DemoSeed []byte

// SeedFile is the YAML layout accepted by Seed.
type SeedFile struct {
	Users      []SeedUser     `yaml:"users"`
	Groups     []SeedGroup    `yaml:"groups"`
	Categories []SeedCategory `yaml:"categories"`
	Documents  []SeedDocument `yaml:"documents"`
	AuditLogs  []SeedAuditLog `yaml:"auditLogs"`
}

type SeedUser struct {
	ID                      string                         `yaml:"id"`
	Name                    string                         `yaml:"name"`
	Email                   string                         `yaml:"email"`
	Role                    model.Role                     `yaml:"role"`
	Password                string                         `yaml:"password"`
	Avatar                  string                         `yaml:"avatar"`
	GroupIDs                []string                       `yaml:"groupIds"`
	Phone                   string                         `yaml:"phone"`
	NotificationPreferences *model.NotificationPreferences `yaml:"notificationPreferences"`
}

type SeedGroup struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	MemberIDs   []string `yaml:"memberIds"`
	CategoryIDs []string `yaml:"categoryIds"`
}

type SeedCategory struct {
	ID                 string   `yaml:"id"`
	Name               string   `yaml:"name"`
	Icon               string   `yaml:"icon"`
	ParentID           *string  `yaml:"parentId"`
	SharedWithGroupIDs []string `yaml:"sharedWithGroupIds"`
	DocumentTypes      []struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"documentTypes"`
}

type SeedDocument struct {
	ID              string     `yaml:"id"`
	Name            string     `yaml:"name"`
	FileName        string     `yaml:"fileName"`
	FileSize        int64      `yaml:"fileSize"`
	MimeType        string     `yaml:"mimeType"`
	CategoryID      string     `yaml:"categoryId"`
	DocumentTypeID  string     `yaml:"documentTypeId"`
	UploadedByID    string     `yaml:"uploadedById"`
	ExpiresAt       *time.Time `yaml:"expiresAt"`
	AlertDaysBefore int        `yaml:"alertDaysBefore"`
}

type SeedAuditLog struct {
	Action       model.AuditAction  `yaml:"action"`
	UserID       string             `yaml:"userId"`
	UserName     string             `yaml:"userName"`
	ResourceType model.ResourceType `yaml:"resourceType"`
	ResourceID   string             `yaml:"resourceId"`
	ResourceName string             `yaml:"resourceName"`
	Details      string             `yaml:"details"`
	CreatedAt    time.Time          `yaml:"createdAt"`
}

// ParseSeed decodes a seed file. Unknown roles are rejected.
func ParseSeed(r io.Reader) (SeedFile, error) {
	var f SeedFile

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&f); err != nil {
		return SeedFile{}, fmt.Errorf("decode seed: %w", err)
	}

	return f, nil
}

// Seed loads the records in r into store unless it already has users.
// Passwords are hashed with bcrypt at cost; zero means bcrypt.DefaultCost.
// It reports whether anything was written.
func Seed(ctx context.Context, store Store, r io.Reader, cost int) (bool, error) {
	existing, err := store.ListUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}

	if len(existing) > 0 {
		return false, nil
	}

	f, err := ParseSeed(r)
	if err != nil {
		return false, err
	}

	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	for _, su := range f.Users {
		u, err := su.user(cost)
		if err != nil {
			return false, err
		}

		if _, err := store.CreateUser(ctx, u); err != nil {
			return false, fmt.Errorf("seed user %s: %w", su.Email, err)
		}
	}

	for _, sg := range f.Groups {
		g := model.Group{
			ID:          sg.ID,
			Name:        sg.Name,
			Description: sg.Description,
			MemberIDs:   sg.MemberIDs,
			CategoryIDs: sg.CategoryIDs,
		}
		if _, err := store.CreateGroup(ctx, g); err != nil {
			return false, fmt.Errorf("seed group %s: %w", sg.ID, err)
		}
	}

	for _, sc := range f.Categories {
		c := model.Category{
			ID:                 sc.ID,
			Name:               sc.Name,
			Icon:               sc.Icon,
			ParentID:           sc.ParentID,
			SharedWithGroupIDs: sc.SharedWithGroupIDs,
		}
		for _, dt := range sc.DocumentTypes {
			c.DocumentTypes = append(c.DocumentTypes, model.DocumentType{ID: dt.ID, Name: dt.Name, CategoryID: sc.ID})
		}

		if _, err := store.CreateCategory(ctx, c); err != nil {
			return false, fmt.Errorf("seed category %s: %w", sc.ID, err)
		}
	}

	for _, sd := range f.Documents {
		if _, err := store.CreateDocument(ctx, sd.document()); err != nil {
			return false, fmt.Errorf("seed document %s: %w", sd.ID, err)
		}
	}

	for _, sl := range f.AuditLogs {
		entry := model.AuditLog{
			Action:       sl.Action,
			UserID:       sl.UserID,
			UserName:     sl.UserName,
			ResourceType: sl.ResourceType,
			ResourceID:   sl.ResourceID,
			ResourceName: sl.ResourceName,
			Details:      sl.Details,
			CreatedAt:    sl.CreatedAt,
		}
		if _, err := store.AppendAuditLog(ctx, entry); err != nil {
			return false, fmt.Errorf("seed audit log: %w", err)
		}
	}

	return true, nil
}

// Reseed clears store and loads seed into it. Stores that do not implement
// Resetter return ErrResetUnsupported and are left untouched.
func Reseed(ctx context.Context, store Store, seed []byte, cost int) error {
	r, ok := store.(Resetter)
	if !ok {
		return ErrResetUnsupported
	}

	if err := r.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}

	if _, err := Seed(ctx, store, bytes.NewReader(seed), cost); err != nil {
		return err
	}

	return nil
}

func (su SeedUser) user(cost int) (model.User, error) {
	if !su.Role.Valid() {
		return model.User{}, fmt.Errorf("seed user %s: %w", su.Email, model.ErrUnknownRole)
	}

	u := model.User{
		ID:                      su.ID,
		Name:                    su.Name,
		Email:                   su.Email,
		Role:                    su.Role,
		Avatar:                  su.Avatar,
		GroupIDs:                su.GroupIDs,
		Phone:                   su.Phone,
		NotificationPreferences: su.NotificationPreferences,
	}

	if su.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(su.Password), cost)
		if err != nil {
			return model.User{}, fmt.Errorf("hash password for %s: %w", su.Email, err)
		}

		u.PasswordHash = string(hash)
	}

	return u, nil
}

func (sd SeedDocument) document() model.Document {
	d := model.Document{
		ID:              sd.ID,
		Name:            sd.Name,
		FileName:        sd.FileName,
		FileSize:        sd.FileSize,
		MimeType:        sd.MimeType,
		CategoryID:      sd.CategoryID,
		DocumentTypeID:  sd.DocumentTypeID,
		UploadedByID:    sd.UploadedByID,
		CurrentVersion:  1,
		ExpiresAt:       sd.ExpiresAt,
		AlertDaysBefore: sd.AlertDaysBefore,
	}

	if d.AlertDaysBefore == 0 && d.ExpiresAt != nil {
		d.AlertDaysBefore = model.DefaultAlertDaysBefore
	}

	if d.ID == "" {
		return d
	}

	d.Versions = []model.DocumentVersion{{
		ID:           d.ID + "-v1",
		DocumentID:   d.ID,
		Version:      1,
		FileName:     d.FileName,
		FileSize:     d.FileSize,
		UploadedByID: d.UploadedByID,
	}}

	return d
}
