package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Scan Attendance API",
        "description": "Fingerprint scan classification and attendance summaries for multiple schools",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Attendance", "description": "Scan classification and summaries"},
        {"name": "Policies", "description": "Per-school time policies"},
        {"name": "Scans", "description": "Stored scanner events"},
        {"name": "Reports", "description": "Asynchronous daily attendance exports"},
        {"name": "Observability", "description": "Health and metrics"}
    ],
    "paths": {
        "/attendance/classify": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Classify a single scan",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ClassifyRequest"}}
                ],
                "responses": {
                    "200": {"description": "Classification", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Malformed payload or timestamp", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Policy violates ordering rules", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/enhance": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Classify a batch of scans, preserving order",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordsRequest"}}
                ],
                "responses": {
                    "200": {"description": "Enhanced records", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/summary/day": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Summarise one student's day",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordsRequest"}}
                ],
                "responses": {
                    "200": {"description": "Day summary", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/summary/period": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Count statuses over a set of scans",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordsRequest"}}
                ],
                "responses": {
                    "200": {"description": "Period summary", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/statuses": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List status types and their presentation",
                "responses": {
                    "200": {"description": "Status table", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schools/{schoolId}/attendance/daily": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Daily summaries from stored scans",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "studentId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Day summaries with period summary in meta", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid or too wide range", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schools/{schoolId}/policy": {
            "get": {
                "tags": ["Policies"],
                "summary": "Resolve a school's time policy",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Resolved policy", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Policies"],
                "summary": "Replace a school's time policy",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "X-Actor", "in": "header", "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TimePolicy"}}
                ],
                "responses": {
                    "200": {"description": "Stored policy", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Malformed times", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Ordering rules violated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schools/{schoolId}/scans": {
            "post": {
                "tags": ["Scans"],
                "summary": "Store a batch of scanner events",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {
                        "type": "object",
                        "properties": {"scans": {"type": "array", "items": {"$ref": "#/definitions/ScanPayload"}}}
                    }}
                ],
                "responses": {
                    "201": {"description": "Accepted, duplicate and rejected counts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Scans"],
                "summary": "List stored scans with their classification",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "direction", "in": "query", "type": "string", "enum": ["IN", "OUT"]},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sortOrder", "in": "query", "type": "string", "enum": ["asc", "desc"]}
                ],
                "responses": {
                    "200": {"description": "Enhanced scans", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue a daily attendance report",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Job queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Reports disabled or queue unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Report job status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Job status", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown job", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a generated report via signed token",
                "produces": ["text/csv", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Report file"},
                    "403": {"description": "Invalid token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Expired token or purged file", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Lightweight metrics snapshot",
                "responses": {
                    "200": {"description": "Snapshot", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "TimePolicy": {
            "type": "object",
            "required": ["schoolStartTime", "schoolEndTime", "lateArrivalThreshold", "earlyDepartureThreshold"],
            "properties": {
                "schoolStartTime": {"type": "string", "example": "07:00"},
                "schoolEndTime": {"type": "string", "example": "15:00"},
                "lateArrivalThreshold": {"type": "string", "example": "07:15"},
                "earlyDepartureThreshold": {"type": "string", "example": "14:00"}
            }
        },
        "ScanPayload": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "studentId": {"type": "string"},
                "direction": {"type": "string", "enum": ["IN", "OUT"]},
                "timestamp": {"type": "string", "example": "2024-03-04T07:55:00"},
                "deviceId": {"type": "string"}
            }
        },
        "ClassifyRequest": {
            "type": "object",
            "properties": {
                "timestamp": {"type": "string"},
                "direction": {"type": "string", "enum": ["IN", "OUT"]},
                "policy": {"$ref": "#/definitions/TimePolicy"},
                "schoolId": {"type": "string"}
            }
        },
        "RecordsRequest": {
            "type": "object",
            "properties": {
                "records": {"type": "array", "items": {"$ref": "#/definitions/ScanPayload"}},
                "policy": {"$ref": "#/definitions/TimePolicy"},
                "schoolId": {"type": "string"}
            }
        },
        "ReportRequest": {
            "type": "object",
            "required": ["schoolId", "from", "to", "format"],
            "properties": {
                "schoolId": {"type": "string"},
                "type": {"type": "string", "enum": ["daily-summary"]},
                "from": {"type": "string", "format": "date"},
                "to": {"type": "string", "format": "date"},
                "studentId": {"type": "string"},
                "format": {"type": "string", "enum": ["csv", "pdf", "xlsx"]}
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
