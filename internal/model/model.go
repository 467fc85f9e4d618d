// Package model holds the entities shared by the store, the authorization
// core and the HTTP layer.
package model

import (
	"slices"
	"time"
)

// NotificationPreferences controls which expiration alerts a user receives.
type NotificationPreferences struct {
	Email           bool  `json:"email" yaml:"email"`
	WhatsApp        bool  `json:"whatsapp" yaml:"whatsapp"`
	Browser         bool  `json:"browser" yaml:"browser"`
	AlertDaysBefore []int `json:"alertDaysBefore" yaml:"alertDaysBefore"`
}

// User is an authenticated identity with exactly one role.
type User struct {
	ID                      string                   `json:"id"`
	Name                    string                   `json:"name"`
	Email                   string                   `json:"email"`
	Role                    Role                     `json:"role"`
	Avatar                  string                   `json:"avatar,omitempty"`
	GroupIDs                []string                 `json:"groupIds"`
	Phone                   string                   `json:"phone,omitempty"`
	NotificationPreferences *NotificationPreferences `json:"notificationPreferences,omitempty"`
	PasswordHash            string                   `json:"passwordHash,omitempty"`
	CreatedAt               time.Time                `json:"createdAt"`
}

// InGroup reports whether the user lists groupID among its memberships.
func (u User) InGroup(groupID string) bool {
	return slices.Contains(u.GroupIDs, groupID)
}

// Group joins users to the categories shared with it.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	MemberIDs   []string  `json:"memberIds"`
	CategoryIDs []string  `json:"categoryIds"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HasMember reports whether userID is listed as a member of the group.
func (g Group) HasMember(userID string) bool {
	return slices.Contains(g.MemberIDs, userID)
}

// DocumentType is a named kind of document within a category.
type DocumentType struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CategoryID string `json:"categoryId"`
}

// Category is a folder of documents, shared with zero or more groups.
type Category struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	Icon               string         `json:"icon"`
	ParentID           *string        `json:"parentId"`
	DocumentTypes      []DocumentType `json:"documentTypes"`
	SharedWithGroupIDs []string       `json:"sharedWithGroupIds"`
	CreatedAt          time.Time      `json:"createdAt"`
}

// DocumentVersion records one uploaded revision of a document.
type DocumentVersion struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"documentId"`
	Version      int       `json:"version"`
	FileName     string    `json:"fileName"`
	FileSize     int64     `json:"fileSize"`
	UploadedByID string    `json:"uploadedById"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DefaultAlertDaysBefore is used when a document does not set its own alert lead time.
const DefaultAlertDaysBefore = 30

// Document is an uploaded file. It belongs to exactly one category.
type Document struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	FileName        string            `json:"fileName"`
	FileSize        int64             `json:"fileSize"`
	MimeType        string            `json:"mimeType"`
	CategoryID      string            `json:"categoryId"`
	DocumentTypeID  string            `json:"documentTypeId"`
	UploadedByID    string            `json:"uploadedById"`
	CurrentVersion  int               `json:"currentVersion"`
	Versions        []DocumentVersion `json:"versions"`
	ExpiresAt       *time.Time        `json:"expiresAt,omitempty"`
	AlertDaysBefore int               `json:"alertDaysBefore,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// AuditAction is the kind of event recorded in the audit log.
type AuditAction string

const (
	AuditUpload   AuditAction = "upload"
	AuditDownload AuditAction = "download"
	AuditView     AuditAction = "view"
	AuditDelete   AuditAction = "delete"
	AuditCreate   AuditAction = "create"
	AuditUpdate   AuditAction = "update"
	AuditLogin    AuditAction = "login"
	AuditLogout   AuditAction = "logout"
)

// ResourceType names the kind of record an audit entry refers to.
type ResourceType string

const (
	ResourceDocument ResourceType = "document"
	ResourceCategory ResourceType = "category"
	ResourceGroup    ResourceType = "group"
	ResourceUser     ResourceType = "user"
	ResourceAuth     ResourceType = "auth"
)

// AuditLog is one entry of the audit trail.
type AuditLog struct {
	ID           string       `json:"id"`
	Action       AuditAction  `json:"action"`
	UserID       string       `json:"userId"`
	UserName     string       `json:"userName"`
	ResourceType ResourceType `json:"resourceType"`
	ResourceID   string       `json:"resourceId"`
	ResourceName string       `json:"resourceName"`
	Details      string       `json:"details,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// Channel is a notification delivery channel.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelBrowser  Channel = "browser"
)

// NotificationStatus is the delivery outcome of a notification.
type NotificationStatus string

const (
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
	NotificationPending NotificationStatus = "pending"
)

// Notification is an expiration alert sent to a user.
type Notification struct {
	ID                  string             `json:"id"`
	UserID              string             `json:"userId"`
	DocumentID          string             `json:"documentId"`
	DocumentName        string             `json:"documentName"`
	Channel             Channel            `json:"type"`
	Status              NotificationStatus `json:"status"`
	Message             string             `json:"message"`
	SentAt              time.Time          `json:"sentAt"`
	ExpiresAt           *time.Time         `json:"expiresAt,omitempty"`
	DaysUntilExpiration int                `json:"daysUntilExpiration"`
	Read                bool               `json:"read"`
}
