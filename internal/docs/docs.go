// Package docs registers the OpenAPI description of the BloodConnect API with
// swag so /api/swagger can serve it.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/locations": {
            "get": {
                "tags": ["locations"],
                "summary": "List states and their constituencies",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/auth/otp/send": {
            "post": {
                "tags": ["auth"],
                "summary": "Send a one-time code to a phone number",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/SendOTPRequest"}}],
                "responses": {
                    "202": {"description": "Code sent", "schema": {"$ref": "#/definitions/OTPChallenge"}},
                    "400": {"description": "Invalid phone", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/auth/otp/resend": {
            "post": {
                "tags": ["auth"],
                "summary": "Replace a pending code with a new one",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/ResendOTPRequest"}}],
                "responses": {
                    "202": {"description": "Code sent", "schema": {"$ref": "#/definitions/OTPChallenge"}},
                    "401": {"description": "Verification expired", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/auth/otp/verify": {
            "post": {
                "tags": ["auth"],
                "summary": "Confirm a code and sign in",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/VerifyOTPRequest"}}],
                "responses": {
                    "200": {"description": "Signed in", "schema": {"$ref": "#/definitions/AuthResult"}},
                    "400": {"description": "Malformed code", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "401": {"description": "Wrong, expired or exhausted code", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Current identity",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}}}
            }
        },
        "/auth/refresh": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Issue a new token for the same device session",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/AuthResult"}}}
            }
        },
        "/auth/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Revoke the token and sign out this device",
                "responses": {"204": {"description": "Signed out"}}
            }
        },
        "/session": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["session"],
                "summary": "Resolve the session state and view",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Snapshot"}}}
            }
        },
        "/ws/ticket": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["session"],
                "summary": "Issue a single-use WebSocket ticket",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ws": {
            "get": {
                "tags": ["session"],
                "summary": "Session socket pushing snapshots and new posts",
                "parameters": [{"in": "query", "name": "ticket", "type": "string", "required": true}],
                "responses": {"101": {"description": "Switching protocols"}, "401": {"description": "Invalid ticket", "schema": {"$ref": "#/definitions/ErrorResponse"}}}
            }
        },
        "/users/me/": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["profile"],
                "summary": "Current profile",
                "responses": {"200": {"description": "OK"}, "404": {"description": "No profile yet", "schema": {"$ref": "#/definitions/ErrorResponse"}}}
            }
        },
        "/users/me/profile": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["profile"],
                "summary": "Complete the donor profile",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Invalid fields", "schema": {"$ref": "#/definitions/ErrorResponse"}}}
            }
        },
        "/users/me/fields/{field}": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "tags": ["profile"],
                "summary": "Edit one profile field",
                "parameters": [
                    {"in": "path", "name": "field", "type": "string", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"type": "object", "properties": {"value": {}}}}
                ],
                "responses": {
                    "200": {"description": "Confirmed", "schema": {"$ref": "#/definitions/FieldUpdate"}},
                    "400": {"description": "Unknown field or invalid value", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "503": {"description": "Write failed, value reverted", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/users/me/availability": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["profile"],
                "summary": "Toggle availability to donate",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/FieldUpdate"}}}
            }
        },
        "/users/me/posts": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["posts"],
                "summary": "Posts created by the caller",
                "parameters": [{"in": "query", "name": "limit", "type": "integer"}, {"in": "query", "name": "offset", "type": "integer"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/posts/": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["posts"],
                "summary": "Feed of recent requests",
                "parameters": [
                    {"in": "query", "name": "tab", "type": "string", "enum": ["Feed", "Donors", "Requests"]},
                    {"in": "query", "name": "type", "type": "string"},
                    {"in": "query", "name": "bloodGroup", "type": "string"},
                    {"in": "query", "name": "urgency", "type": "string"},
                    {"in": "query", "name": "q", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["posts"],
                "summary": "Create a donation request",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Invalid fields", "schema": {"$ref": "#/definitions/ErrorResponse"}}, "429": {"description": "Rate limited"}}
            }
        },
        "/posts/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["posts"],
                "summary": "One post",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorResponse"}}}
            }
        },
        "/admin/feature-flags": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Feature flags as evaluated for the caller",
                "responses": {"200": {"description": "OK"}, "403": {"description": "Admin only"}}
            }
        },
        "/admin/staff": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Admins and superadmins",
                "responses": {"200": {"description": "OK"}, "403": {"description": "Admin only"}}
            }
        },
        "/admin/users/{uid}/role": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Set a user's role",
                "parameters": [
                    {"in": "path", "name": "uid", "type": "string", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"type": "object", "properties": {"role": {"type": "string"}}}}
                ],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Superadmin only"}}
            }
        }
    },
    "definitions": {
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "string"},
                "details": {"type": "string"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}},
                "retryable": {"type": "boolean"}
            }
        },
        "SendOTPRequest": {
            "type": "object",
            "properties": {"callingCode": {"type": "string", "example": "91"}, "phone": {"type": "string", "example": "9876543210"}}
        },
        "ResendOTPRequest": {
            "type": "object",
            "properties": {"verificationId": {"type": "string"}}
        },
        "VerifyOTPRequest": {
            "type": "object",
            "properties": {"verificationId": {"type": "string"}, "code": {"type": "string", "example": "123456"}}
        },
        "OTPChallenge": {
            "type": "object",
            "properties": {"verificationId": {"type": "string"}, "expiresAt": {"type": "string", "format": "date-time"}, "code": {"type": "string"}}
        },
        "AuthResult": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "expiresAt": {"type": "string", "format": "date-time"},
                "identity": {"type": "object"},
                "session": {"$ref": "#/definitions/Snapshot"}
            }
        },
        "Snapshot": {
            "type": "object",
            "properties": {
                "state": {"type": "string", "enum": ["unauthenticated", "needs-profile", "ready", "unavailable"]},
                "uid": {"type": "string"},
                "role": {"type": "string"},
                "view": {"type": "string", "enum": ["standard", "admin", "superadmin"]},
                "retryable": {"type": "boolean"},
                "profileVersion": {"type": "integer"},
                "reason": {"type": "string"}
            }
        },
        "FieldUpdate": {
            "type": "object",
            "properties": {
                "field": {"type": "string"},
                "value": {},
                "previous": {},
                "status": {"type": "string", "enum": ["confirmed", "failed"]},
                "version": {"type": "integer"},
                "error": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "BloodConnect API",
	Description:      "Blood donation requests, donor profiles and live session state.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
