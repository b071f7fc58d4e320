package models

import (
	"errors"

	"github.com/docflow/docflow/portal/internal/workflow"
)

// User is the signed-in account as reported by the backend.
type User struct {
	ID       string        `json:"_id"`
	Email    string        `json:"email"`
	Role     workflow.Role `json:"role"`
	Verified bool          `json:"verified,omitempty"`
}

// PortfolioManager requests and evaluates documents.
type PortfolioManager struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// FieldPartner is created by a portfolio manager and uploads the requested documents.
type FieldPartner struct {
	ID           string             `json:"_id"`
	OrgName      string             `json:"org_name"`
	Email        string             `json:"email"`
	PMID         string             `json:"pm_id"`
	Instructions string             `json:"instructions,omitempty"`
	DueDate      string             `json:"due_date,omitempty"`
	AppStatus    workflow.AppStatus `json:"app_status"`
}

// DocumentClass is a reusable template for a requestable document.
type DocumentClass struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	FileID      string `json:"fileID,omitempty"`
	FileName    string `json:"fileName,omitempty"`
}

// Document is one requested file bound to a user.
type Document struct {
	ID         string          `json:"_id"`
	UserID     string          `json:"userID"`
	DocClassID string          `json:"docClassID,omitempty"`
	Name       string          `json:"docName,omitempty"`
	DueDate    string          `json:"dueDate,omitempty"`
	FileID     string          `json:"fileID,omitempty"`
	FileName   string          `json:"fileName,omitempty"`
	Link       string          `json:"link,omitempty"`
	Status     workflow.Status `json:"status"`
}

// DocumentsByStatus is the backend's partition of a user's documents.
type DocumentsByStatus map[workflow.Status][]Document

// Find returns the document with the given id. Its Status is the column it
// is filed under, whatever the record itself carries.
func (d DocumentsByStatus) Find(id string) (Document, bool) {
	for status, docs := range d {
		for _, doc := range docs {
			if doc.ID == id {
				doc.Status = status
				return doc, true
			}
		}
	}
	return Document{}, false
}

// Normalize sets every document's Status to the column it is filed under.
func (d DocumentsByStatus) Normalize() {
	for status, docs := range d {
		for i := range docs {
			docs[i].Status = status
		}
	}
}

// Message is a notification tied to a document event.
type Message struct {
	ID         string `json:"_id,omitempty"`
	PMID       string `json:"pm_id,omitempty"`
	FPID       string `json:"fp_id,omitempty"`
	ToFP       bool   `json:"to_fp"`
	DocumentID string `json:"doc_id"`
	Reason     string `json:"reason,omitempty"`
	Date       string `json:"date,omitempty"`
}

var ErrMessageAuthor = errors.New("message must carry exactly one of pm_id or fp_id")

// Validate enforces the single-author invariant.
func (m Message) Validate() error {
	if (m.PMID == "") == (m.FPID == "") {
		return ErrMessageAuthor
	}
	return nil
}

// SecurityQuestion is one of the backend's account recovery prompts.
type SecurityQuestion struct {
	Index    int    `json:"questionIdx"`
	Question string `json:"question"`
}
