// Package docs registers the OpenAPI description served under /swagger.
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
    "paths": {
        "/auth/signup": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Sign up",
                "parameters": [
                    {"description": "new account", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.CreateUserInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"type": "object", "additionalProperties": true}},
                    "409": {"description": "Conflict", "schema": {"type": "object", "additionalProperties": true}},
                    "422": {"description": "Unprocessable Entity", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/auth/signin": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Sign in and receive a JWT",
                "parameters": [
                    {"description": "credentials", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.loginInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/auth/confirm": {
            "get": {
                "tags": ["auth"],
                "summary": "Confirm an email address",
                "parameters": [
                    {"type": "string", "description": "email", "name": "email", "in": "query", "required": true},
                    {"type": "string", "description": "verification token", "name": "token", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/competitions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["competitions"],
                "summary": "Browse public competitions",
                "parameters": [
                    {"type": "string", "description": "country", "name": "country", "in": "query"},
                    {"type": "string", "description": "category", "name": "category", "in": "query"},
                    {"type": "string", "description": "status", "name": "status", "in": "query"},
                    {"type": "string", "description": "text search", "name": "search", "in": "query"},
                    {"type": "integer", "description": "page (from 1)", "name": "page", "in": "query"},
                    {"type": "integer", "description": "page size", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.CompetitionPage"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["competitions"],
                "summary": "Create a competition",
                "parameters": [
                    {"description": "competition", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.CompetitionInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"type": "object", "additionalProperties": true}},
                    "422": {"description": "Unprocessable Entity", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/competitions/{competitionID}/participations": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["participations"],
                "summary": "Apply to a competition",
                "parameters": [
                    {"type": "string", "description": "competition id", "name": "competitionID", "in": "path", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"type": "object", "additionalProperties": true}},
                    "409": {"description": "Conflict", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/competitions/{competitionID}/teams": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["teams"],
                "summary": "Register a team in a competition",
                "parameters": [
                    {"type": "string", "description": "competition id", "name": "competitionID", "in": "path", "required": true},
                    {"description": "team", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.TeamInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"type": "object", "additionalProperties": true}},
                    "409": {"description": "Conflict", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/competitions/{competitionID}/matches/generate": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "ROUND_ROBIN plays every pair once, one round a week; KNOCKOUT creates the first round only.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["matches"],
                "summary": "Generate the fixtures of a competition",
                "parameters": [
                    {"type": "string", "description": "competition id", "name": "competitionID", "in": "path", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/teams/{teamID}/players": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["players"],
                "summary": "Add a player to a team roster",
                "parameters": [
                    {"type": "string", "description": "team id", "name": "teamID", "in": "path", "required": true},
                    {"description": "player", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.PlayerInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"type": "object", "additionalProperties": true}},
                    "409": {"description": "Conflict", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/notifications": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "Notifications of the current user, newest first",
                "parameters": [
                    {"type": "boolean", "description": "only unread", "name": "unread", "in": "query"},
                    {"type": "integer", "description": "page size (default 50)", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "offset", "name": "skip", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/search": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Search competitions, teams and users",
                "parameters": [
                    {"type": "string", "description": "query", "name": "q", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.SearchResults"}}
                }
            }
        },
        "/users/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Current user profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Store health per collection",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.HealthStatus"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/models.HealthStatus"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.loginInput": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "models.CreateUserInput": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "firstName": {"type": "string"},
                "lastName": {"type": "string"},
                "phoneNumber": {"type": "string"},
                "role": {"type": "string", "enum": ["ORGANIZER", "PARTICIPANT"]},
                "country": {"type": "string"},
                "city": {"type": "string"},
                "commune": {"type": "string"}
            }
        },
        "models.CompetitionInput": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "category": {"type": "string"},
                "type": {"type": "string"},
                "venue": {"type": "string"},
                "city": {"type": "string"},
                "country": {"type": "string"},
                "startDate": {"type": "string"},
                "endDate": {"type": "string"},
                "registrationDeadline": {"type": "string"},
                "maxParticipants": {"type": "integer"},
                "isPublic": {"type": "boolean"},
                "requiresApproval": {"type": "boolean"}
            }
        },
        "models.CompetitionPage": {
            "type": "object",
            "properties": {
                "competitions": {"type": "array", "items": {"type": "object"}},
                "total": {"type": "integer"},
                "page": {"type": "integer"},
                "limit": {"type": "integer"}
            }
        },
        "models.TeamInput": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "captainId": {"type": "string"},
                "groupId": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "models.PlayerInput": {
            "type": "object",
            "properties": {
                "firstName": {"type": "string"},
                "lastName": {"type": "string"},
                "userId": {"type": "string"},
                "jerseyNumber": {"type": "integer"},
                "position": {"type": "string"},
                "birthDate": {"type": "string"}
            }
        },
        "models.SearchResults": {
            "type": "object",
            "properties": {
                "competitions": {"type": "array", "items": {"type": "object"}},
                "teams": {"type": "array", "items": {"type": "object"}},
                "users": {"type": "array", "items": {"type": "object"}}
            }
        },
        "models.HealthStatus": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "collections": {"type": "array", "items": {"type": "object"}},
                "errors": {"type": "array", "items": {"type": "string"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Sports Competitions API",
	Description:      "Competitions, participations, teams, players, matches, groups and notifications.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
