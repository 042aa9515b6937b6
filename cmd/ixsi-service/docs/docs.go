// Package docs holds the swagger spec of the ixsi-service HTTP API in the layout swag init emits.
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
        "/ixsi": {
            "post": {
                "description": "Decode a request envelope, answer every request in it and return the response envelope",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "ixsi"
                ],
                "summary": "Dispatch an IXSI envelope",
                "parameters": [
                    {
                        "description": "IXSI request envelope",
                        "name": "envelope",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/errors.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/errors.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/ops/systems/{systemId}/subscriptions": {
            "get": {
                "security": [
                    {
                        "OpsToken": []
                    }
                ],
                "description": "Get the active booking target subscriptions of one partner system",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "ops"
                ],
                "summary": "List subscriptions of a partner system",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Partner system ID",
                        "name": "systemId",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/gateway.subscriptionsResponse"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/errors.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/errors.ErrorResponse"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "errors.ErrorResponse": {
            "type": "object",
            "properties": {
                "details": {
                    "type": "object",
                    "additionalProperties": {}
                },
                "error": {
                    "type": "string"
                },
                "error_code": {
                    "type": "string"
                }
            }
        },
        "gateway.subscriptionsResponse": {
            "type": "object",
            "properties": {
                "subscriptions": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/subscription.Subscription"
                    }
                },
                "systemId": {
                    "type": "string"
                }
            }
        },
        "ixsi.BookingTargetID": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "providerId": {
                    "type": "string"
                }
            }
        },
        "subscription.Subscription": {
            "type": "object",
            "properties": {
                "bookingTargetId": {
                    "$ref": "#/definitions/ixsi.BookingTargetID"
                },
                "expiresAt": {
                    "type": "string"
                },
                "systemId": {
                    "type": "string"
                }
            }
        }
    },
    "securityDefinitions": {
        "OpsToken": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Bikeman IXSI Service API",
	Description:      "HTTP gateway for IXSI request envelopes and operator views of the subscription registry",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
