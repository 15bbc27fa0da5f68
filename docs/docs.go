// Package docs registers the OpenAPI description served at /swagger.
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
    "paths": {
        "/auth/login": {"post": {"tags": ["Authentication"], "summary": "Login", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/auth/register": {"post": {"tags": ["Authentication"], "summary": "Register new user", "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}},
        "/auth/profile": {"get": {"tags": ["Authentication"], "summary": "Get profile", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/products": {"get": {"tags": ["Products"], "summary": "Get all products", "responses": {"200": {"description": "OK"}}}},
        "/products/{id}": {"get": {"tags": ["Products"], "summary": "Get product by ID", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/cart": {
            "get": {"tags": ["Cart"], "summary": "Get cart", "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Cart"], "summary": "Clear cart", "responses": {"200": {"description": "OK"}}}
        },
        "/cart/items": {"post": {"tags": ["Cart"], "summary": "Add to cart", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}}},
        "/cart/items/{productId}": {
            "patch": {"tags": ["Cart"], "summary": "Update cart item quantity", "parameters": [{"name": "productId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Cart"], "summary": "Remove cart item", "parameters": [{"name": "productId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/cart/merge": {"post": {"tags": ["Cart"], "summary": "Merge guest cart", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Cretan Guru API",
	Description:      "Catalog, cart and sign-in API for the Cretan Guru shop.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
