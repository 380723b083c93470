package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timegrid API",
        "description": "Weekly timetable editing: generation, block moves, conflict detection, saving and exports",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Timetables", "description": "Generation and saved timetables"},
        {"name": "Sessions", "description": "Editing sessions over a generated schedule"},
        {"name": "Exports", "description": "Asynchronous CSV and PDF exports"}
    ],
    "paths": {
        "/timetables/generate": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Generate a schedule and open an editing session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Generator failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "504": {"description": "Generator timed out", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables": {
            "get": {
                "tags": ["Timetables"],
                "summary": "List saved timetables",
                "parameters": [
                    {"name": "faculty", "in": "query", "type": "string"},
                    {"name": "semester", "in": "query", "type": "string"},
                    {"name": "session", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Get a saved timetable",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Timetables"],
                "summary": "Delete a saved timetable",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/timetables/{id}/sessions": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Open a saved timetable for editing",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/sessions/{sessionId}": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Get editing session snapshot",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Session not found or expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Sessions"],
                "summary": "Close an editing session",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Closed"}
                }
            }
        },
        "/timetables/sessions/{sessionId}/blocks": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List consolidated blocks",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"},
                    {"name": "view", "in": "query", "type": "string", "enum": ["level", "faculty"]},
                    {"name": "level", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/sessions/{sessionId}/conflicts": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List conflicts of the effective schedule",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/sessions/{sessionId}/moves": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Move a block",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MoveBlockRequest"}}
                ],
                "responses": {
                    "200": {"description": "Applied", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Target occupied or no-op", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Block does not fit the grid", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/sessions/{sessionId}/selection": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Pick up the block at a slot",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SlotRequest"}}
                ],
                "responses": {
                    "200": {"description": "Selected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Sessions"],
                "summary": "Cancel the current selection",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Cancelled"}
                }
            }
        },
        "/timetables/sessions/{sessionId}/selection/drop": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Move the selected block onto a slot",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SlotRequest"}}
                ],
                "responses": {
                    "200": {"description": "Applied", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Target occupied or nothing selected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/sessions/{sessionId}/reset": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Discard every edit of the session",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/sessions/{sessionId}/save": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Persist the session's effective schedule",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/SaveTimetableRequest"}}
                ],
                "responses": {
                    "201": {"description": "Saved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Schedule has conflicts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/sessions/{sessionId}/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue a CSV or PDF export",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Schedule has conflicts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/jobs/{jobId}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Poll an export job",
                "parameters": [
                    {"name": "jobId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/download/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "404": {"description": "Unknown link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Link expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Course": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "name": {"type": "string"},
                "level": {"type": "string"},
                "department": {"type": "string"},
                "num_students": {"type": "integer"},
                "duration": {"type": "integer", "description": "minutes"}
            }
        },
        "Room": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "capacity": {"type": "integer"}
            }
        },
        "Instructor": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "department": {"type": "string"},
                "courses": {"type": "array", "items": {"type": "string"}},
                "available_days": {"type": "array", "items": {"type": "string"}}
            }
        },
        "GenerateTimetableRequest": {
            "type": "object",
            "required": ["faculty", "semester", "session", "courses", "rooms", "instructors", "time_frame"],
            "properties": {
                "sessionId": {"type": "string", "format": "uuid"},
                "faculty": {"type": "string"},
                "semester": {"type": "string"},
                "session": {"type": "string"},
                "courses": {"type": "array", "items": {"$ref": "#/definitions/Course"}},
                "rooms": {"type": "array", "items": {"$ref": "#/definitions/Room"}},
                "instructors": {"type": "array", "items": {"$ref": "#/definitions/Instructor"}},
                "time_frame": {
                    "type": "object",
                    "properties": {
                        "start": {"type": "string", "example": "08:00"},
                        "end": {"type": "string", "example": "17:00"}
                    }
                },
                "break": {"type": "string", "example": "12:00"}
            }
        },
        "MoveBlockRequest": {
            "type": "object",
            "required": ["sourceLevel", "sourceDay", "sourceTime", "targetLevel", "targetDay", "targetTime"],
            "properties": {
                "sourceLevel": {"type": "string"},
                "sourceDay": {"type": "string"},
                "sourceTime": {"type": "string"},
                "targetLevel": {"type": "string"},
                "targetDay": {"type": "string"},
                "targetTime": {"type": "string"}
            }
        },
        "SlotRequest": {
            "type": "object",
            "required": ["level", "day", "time"],
            "properties": {
                "level": {"type": "string"},
                "day": {"type": "string"},
                "time": {"type": "string"}
            }
        },
        "SaveTimetableRequest": {
            "type": "object",
            "properties": {
                "faculty": {"type": "string"},
                "semester": {"type": "string"},
                "session": {"type": "string"},
                "allowConflicts": {"type": "boolean"}
            }
        },
        "ExportRequest": {
            "type": "object",
            "required": ["format", "view"],
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "view": {"type": "string", "enum": ["level", "faculty"]},
                "levels": {"type": "array", "items": {"type": "string"}},
                "allowConflicts": {"type": "boolean"}
            }
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
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
