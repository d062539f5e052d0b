package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Syllabus Workflow API",
        "description": "Multi-stage approval workflow for academic syllabi",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Syllabi", "description": "Syllabus drafting and approval cycle"},
        {"name": "Revisions", "description": "Post-publication revision sessions"},
        {"name": "Notifications", "description": "In-app workflow notifications"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/syllabi": {
            "get": {
                "tags": ["Syllabi"],
                "summary": "List syllabi visible to the caller",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "description": "Comma separated statuses"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Syllabi"],
                "summary": "Draft a new syllabus version",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSyllabusRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/syllabi/status-tabs": {
            "get": {
                "tags": ["Syllabi"],
                "summary": "Status tab bar for the caller's role",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/syllabi/{id}": {
            "get": {
                "tags": ["Syllabi"],
                "summary": "Get syllabus detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not visible to the caller's role"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/syllabi/{id}/submit": {
            "post": {
                "tags": ["Syllabi"],
                "summary": "Submit a draft for approval",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not submittable in the current status"}
                }
            }
        },
        "/syllabi/{id}/decision": {
            "post": {
                "tags": ["Syllabi"],
                "summary": "Approve or reject a pending syllabus",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApprovalRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Stage owned by another role"},
                    "409": {"description": "Invalid transition or stale state"}
                }
            }
        },
        "/syllabi/{id}/archive": {
            "post": {
                "tags": ["Syllabi"],
                "summary": "Archive a published syllabus",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ArchiveSyllabusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/syllabi/{id}/history": {
            "get": {
                "tags": ["Syllabi"],
                "summary": "List approval decisions of a syllabus",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/syllabi/{id}/revision": {
            "get": {
                "tags": ["Revisions"],
                "summary": "Get the active revision session of a syllabus",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No active session"}
                }
            }
        },
        "/syllabi/{id}/revision/completed": {
            "get": {
                "tags": ["Revisions"],
                "summary": "Get the latest completed revision session of a syllabus",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No completed session"}
                }
            }
        },
        "/revisions": {
            "post": {
                "tags": ["Revisions"],
                "summary": "Open a revision session for a published syllabus",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StartRevisionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "A session is already active"}
                }
            }
        },
        "/revisions/pending": {
            "get": {
                "tags": ["Revisions"],
                "summary": "List sessions awaiting review or republish",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/revisions/{id}": {
            "get": {
                "tags": ["Revisions"],
                "summary": "Get revision session detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/revisions/{id}/submit": {
            "post": {
                "tags": ["Revisions"],
                "summary": "Submit a corrected syllabus for HOD review",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitRevisionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/revisions/{id}/review": {
            "post": {
                "tags": ["Revisions"],
                "summary": "Record the HOD verdict on a submitted revision",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewRevisionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/revisions/{id}/republish": {
            "post": {
                "tags": ["Revisions"],
                "summary": "Republish an approved revision",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "No approved revision to republish"}
                }
            }
        },
        "/revisions/{id}/cancel": {
            "post": {
                "tags": ["Revisions"],
                "summary": "Cancel a revision session before review",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List the caller's notifications",
                "parameters": [
                    {"name": "unread", "in": "query", "type": "boolean"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications/unread-count": {
            "get": {
                "tags": ["Notifications"],
                "summary": "Unread notification badge count",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications/{id}/read": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Mark one notification as read",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        }
    },
    "definitions": {
        "Syllabus": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "subjectId": {"type": "string"},
                "versionNo": {"type": "string"},
                "version": {"type": "integer"},
                "subjectCode": {"type": "string"},
                "subjectNameVi": {"type": "string"},
                "subjectNameEn": {"type": "string"},
                "creditCount": {"type": "integer"},
                "status": {"type": "string"},
                "ownerId": {"type": "string"},
                "effectiveDate": {"type": "string"},
                "republishCount": {"type": "integer"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "CreateSyllabusRequest": {
            "type": "object",
            "properties": {
                "subjectId": {"type": "string"},
                "termId": {"type": "string"},
                "versionNo": {"type": "string"},
                "subjectCode": {"type": "string"},
                "subjectNameVi": {"type": "string"},
                "subjectNameEn": {"type": "string"},
                "creditCount": {"type": "integer"},
                "content": {"type": "object"},
                "description": {"type": "string"},
                "keywords": {"type": "string"}
            },
            "required": ["subjectId", "versionNo", "subjectCode", "subjectNameVi"]
        },
        "ApprovalRequest": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["APPROVE", "REJECT"]},
                "reason": {"type": "string"},
                "comment": {"type": "string"},
                "effectiveDate": {"type": "string"}
            },
            "required": ["action"]
        },
        "ArchiveSyllabusRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            },
            "required": ["reason"]
        },
        "StartRevisionRequest": {
            "type": "object",
            "properties": {
                "syllabusId": {"type": "string"},
                "feedbackIds": {"type": "array", "items": {"type": "string"}},
                "description": {"type": "string"}
            },
            "required": ["syllabusId"]
        },
        "SubmitRevisionRequest": {
            "type": "object",
            "properties": {
                "summary": {"type": "string"}
            }
        },
        "ReviewRevisionRequest": {
            "type": "object",
            "properties": {
                "decision": {"type": "string", "enum": ["APPROVED", "REJECTED"]},
                "comment": {"type": "string"}
            },
            "required": ["decision"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
