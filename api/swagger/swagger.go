package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Exam Room Allocation API",
        "description": "Assigns examination rooms to courses per exam slot.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Allocations", "description": "Room allocation batches, conflicts and summaries"},
        {"name": "Operations", "description": "Health, readiness and metrics"}
    ],
    "paths": {
        "/allocations/auto": {
            "post": {
                "tags": ["Allocations"],
                "summary": "Allocate rooms for courses in an exam slot",
                "description": "Omit course_ids to allocate every active course still needing seats.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AllocationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Slot locked by another batch", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "No courses to allocate", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/allocations/preview": {
            "post": {
                "tags": ["Allocations"],
                "summary": "Preview an allocation batch without saving it",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AllocationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/allocations/check-conflicts": {
            "post": {
                "tags": ["Allocations"],
                "summary": "Check candidate courses against existing allocations in a slot",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ConflictCheckRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/allocations/cancel": {
            "post": {
                "tags": ["Allocations"],
                "summary": "Cancel a course's allocations in a slot",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CancelAllocationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No active allocations", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/allocations": {
            "get": {
                "tags": ["Allocations"],
                "summary": "List active allocations of a slot",
                "parameters": [
                    {"name": "date", "in": "query", "required": true, "type": "string"},
                    {"name": "start_time", "in": "query", "required": true, "type": "string"},
                    {"name": "end_time", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/allocations/summary": {
            "get": {
                "tags": ["Allocations"],
                "summary": "Allocation summary for one exam date",
                "parameters": [
                    {"name": "date", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/allocations/statistics": {
            "get": {
                "tags": ["Allocations"],
                "summary": "Allocation statistics for a date range",
                "parameters": [
                    {"name": "start_date", "in": "query", "required": true, "type": "string"},
                    {"name": "end_date", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid range", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SlotFields": {
            "type": "object",
            "properties": {
                "date": {"type": "string", "example": "2024-06-10"},
                "start_time": {"type": "string", "example": "08:00"},
                "end_time": {"type": "string", "example": "10:00"}
            },
            "required": ["date", "start_time", "end_time"]
        },
        "AllocationRequest": {
            "allOf": [
                {"$ref": "#/definitions/SlotFields"},
                {
                    "type": "object",
                    "properties": {
                        "course_ids": {"type": "array", "items": {"type": "string"}}
                    }
                }
            ]
        },
        "ConflictCheckRequest": {
            "allOf": [
                {"$ref": "#/definitions/SlotFields"},
                {
                    "type": "object",
                    "properties": {
                        "course_ids": {"type": "array", "items": {"type": "string"}}
                    },
                    "required": ["course_ids"]
                }
            ]
        },
        "CancelAllocationRequest": {
            "allOf": [
                {"$ref": "#/definitions/SlotFields"},
                {
                    "type": "object",
                    "properties": {
                        "course_id": {"type": "string"}
                    },
                    "required": ["course_id"]
                }
            ]
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
                "message": {"type": "string"},
                "error": {"$ref": "#/definitions/APIError"},
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
