// Package docs registers the OpenAPI document served under /swagger/.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/v1/auth/token": {
            "post": {
                "tags": ["auth"],
                "summary": "Exchange member credentials for a bearer token",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/IssueTokenRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TokenResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/members": {
            "post": {
                "tags": ["members"],
                "summary": "Register a member (administrators only)",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/RegisterMemberRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/MemberResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/members/exists": {
            "get": {
                "tags": ["members"],
                "summary": "Report whether an identity is registered",
                "parameters": [{"in": "query", "name": "identity", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/MemberExistsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/members/me": {
            "get": {
                "tags": ["members"],
                "summary": "Profile of the authenticated member",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ProfileResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/topics": {
            "post": {
                "tags": ["topics"],
                "summary": "Create a topic owned by the caller (administrators only)",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/CreateTopicRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/TopicResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/topics/mine": {
            "get": {
                "tags": ["topics"],
                "summary": "List topics owned by the caller (administrators only)",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "query", "name": "category", "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/TopicListResponse"}}}
            }
        },
        "/v1/topics/active": {
            "get": {
                "tags": ["topics"],
                "summary": "List topics whose session is accepting votes",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "query", "name": "category", "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/TopicListResponse"}}}
            }
        },
        "/v1/topics/{topic_id}": {
            "get": {
                "tags": ["topics"],
                "summary": "Get a topic with an active session",
                "parameters": [{"in": "path", "name": "topic_id", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ActiveTopicResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/topics/{topic_id}/details": {
            "get": {
                "tags": ["topics"],
                "summary": "Owner view of a topic with voters and status (administrators only)",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "topic_id", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TopicDetailsResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/topics/{topic_id}/session": {
            "post": {
                "tags": ["sessions"],
                "summary": "Open the voting session of a topic (administrators only)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "topic_id", "required": true, "type": "string"},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/OpenSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/SessionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/topics/{topic_id}/votes/internal": {
            "post": {
                "tags": ["votes"],
                "summary": "Cast a vote as the authenticated member",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "topic_id", "required": true, "type": "string"},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/InternalVoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SessionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/topics/{topic_id}/votes/external": {
            "post": {
                "tags": ["votes"],
                "summary": "Cast a vote with explicit voter credentials",
                "parameters": [
                    {"in": "path", "name": "topic_id", "required": true, "type": "string"},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/ExternalVoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SessionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/topics/{topic_id}/status": {
            "get": {
                "tags": ["sessions"],
                "summary": "Resolve the session status of a topic",
                "parameters": [{"in": "path", "name": "topic_id", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/StatusResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "ErrorResponse": {"type": "object", "properties": {"code": {"type": "string"}, "message": {"type": "string"}}},
        "IssueTokenRequest": {"type": "object", "properties": {"identity": {"type": "string"}, "secret": {"type": "string"}}},
        "TokenResponse": {"type": "object", "properties": {"access_token": {"type": "string"}, "token_type": {"type": "string"}, "expires_at": {"type": "string", "format": "date-time"}}},
        "RegisterMemberRequest": {"type": "object", "properties": {"identity": {"type": "string"}, "display_name": {"type": "string"}, "email": {"type": "string"}, "secret": {"type": "string"}, "admin": {"type": "boolean"}}},
        "MemberResponse": {"type": "object", "properties": {"member_id": {"type": "string"}, "identity": {"type": "string"}, "display_name": {"type": "string"}, "email": {"type": "string"}, "admin": {"type": "boolean"}}},
        "MemberExistsResponse": {"type": "object", "properties": {"identity": {"type": "string"}, "exists": {"type": "boolean"}}},
        "ProfileResponse": {"type": "object", "properties": {"member_id": {"type": "string"}, "identity": {"type": "string"}, "display_name": {"type": "string"}, "email": {"type": "string"}, "admin": {"type": "boolean"}}},
        "CreateTopicRequest": {"type": "object", "properties": {"subject": {"type": "string"}, "category": {"type": "string", "enum": ["transport", "education", "sports", "food", "health"]}}},
        "TopicResponse": {"type": "object", "properties": {"topic_id": {"type": "string"}, "subject": {"type": "string"}, "category": {"type": "string"}, "owner_id": {"type": "string"}, "session_id": {"type": "string"}, "created_at": {"type": "string", "format": "date-time"}}},
        "TopicListResponse": {"type": "object", "properties": {"items": {"type": "array", "items": {"$ref": "#/definitions/TopicResponse"}}}},
        "OpenSessionRequest": {"type": "object", "properties": {"duration_minutes": {"type": "integer"}}},
        "VoteResponse": {"type": "object", "properties": {"voter_identity": {"type": "string"}, "polarity": {"type": "string"}, "cast_at": {"type": "string", "format": "date-time"}}},
        "SessionResponse": {"type": "object", "properties": {"session_id": {"type": "string"}, "topic_id": {"type": "string"}, "opens_at": {"type": "string", "format": "date-time"}, "closes_at": {"type": "string", "format": "date-time"}, "positive_count": {"type": "integer"}, "negative_count": {"type": "integer"}, "positive": {"type": "array", "items": {"$ref": "#/definitions/VoteResponse"}}, "negative": {"type": "array", "items": {"$ref": "#/definitions/VoteResponse"}}}},
        "InternalVoteRequest": {"type": "object", "properties": {"polarity": {"type": "string", "enum": ["positive", "negative"]}}},
        "ExternalVoteRequest": {"type": "object", "properties": {"voter_identity": {"type": "string"}, "secret": {"type": "string"}, "polarity": {"type": "string", "enum": ["positive", "negative"]}}},
        "ActiveTopicResponse": {"type": "object", "properties": {"topic": {"$ref": "#/definitions/TopicResponse"}, "session": {"$ref": "#/definitions/SessionResponse"}}},
        "OwnerResponse": {"type": "object", "properties": {"identity": {"type": "string"}, "display_name": {"type": "string"}, "email": {"type": "string"}}},
        "TopicDetailsResponse": {"type": "object", "properties": {"topic": {"$ref": "#/definitions/TopicResponse"}, "owner": {"$ref": "#/definitions/OwnerResponse"}, "session": {"$ref": "#/definitions/SessionResponse"}, "status": {"type": "string", "enum": ["IN_PROGRESS", "APPROVED", "REJECTED"]}}},
        "StatusResponse": {"type": "object", "properties": {"topic_id": {"type": "string"}, "status": {"type": "string"}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Plenary Voting API",
	Description:      "Topics, time-boxed voting sessions and yes/no votes.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
