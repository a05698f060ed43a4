// Package docs registers the Folio OpenAPI description with swag.
// Regenerate with: swag init -g cmd/api/main.go -o internal/docs
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
        "/portfolios": {
            "get": {"tags": ["portfolios"], "summary": "List portfolios", "responses": {"200": {"description": "Paginated portfolios"}}},
            "post": {"tags": ["portfolios"], "summary": "Create portfolio", "responses": {"201": {"description": "Portfolio created"}, "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}}}
        },
        "/portfolios/{id}": {
            "get": {"tags": ["portfolios"], "summary": "Get portfolio by ID", "parameters": [{"$ref": "#/parameters/portfolioID"}], "responses": {"200": {"description": "Portfolio details"}, "404": {"description": "Portfolio not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}}},
            "put": {"tags": ["portfolios"], "summary": "Update portfolio", "parameters": [{"$ref": "#/parameters/portfolioID"}], "responses": {"200": {"description": "Portfolio updated"}}},
            "delete": {"tags": ["portfolios"], "summary": "Delete portfolio", "parameters": [{"$ref": "#/parameters/portfolioID"}], "responses": {"200": {"description": "Portfolio deleted"}}}
        },
        "/portfolios/{id}/audit-logs": {
            "get": {"tags": ["portfolios"], "summary": "List audit log", "parameters": [{"$ref": "#/parameters/portfolioID"}], "responses": {"200": {"description": "Paginated audit entries"}}}
        },
        "/portfolios/{id}/transactions": {
            "get": {"tags": ["transactions"], "summary": "List transactions", "parameters": [{"$ref": "#/parameters/portfolioID"}], "responses": {"200": {"description": "Paginated transactions"}}},
            "post": {"tags": ["transactions"], "summary": "Create transaction", "parameters": [{"$ref": "#/parameters/portfolioID"}], "responses": {"201": {"description": "Transaction created"}}}
        },
        "/portfolios/{id}/transactions/{transaction_id}": {
            "get": {"tags": ["transactions"], "summary": "Get transaction", "parameters": [{"$ref": "#/parameters/portfolioID"}, {"type": "string", "name": "transaction_id", "in": "path", "required": true}], "responses": {"200": {"description": "Transaction details"}}},
            "put": {"tags": ["transactions"], "summary": "Update transaction", "parameters": [{"$ref": "#/parameters/portfolioID"}, {"type": "string", "name": "transaction_id", "in": "path", "required": true}], "responses": {"200": {"description": "Transaction updated"}}},
            "delete": {"tags": ["transactions"], "summary": "Delete transaction", "parameters": [{"$ref": "#/parameters/portfolioID"}, {"type": "string", "name": "transaction_id", "in": "path", "required": true}], "responses": {"200": {"description": "Transaction deleted"}}}
        },
        "/portfolios/{id}/dividends": {
            "get": {"tags": ["dividends"], "summary": "List dividends", "parameters": [{"$ref": "#/parameters/portfolioID"}], "responses": {"200": {"description": "Paginated dividends"}}},
            "post": {"tags": ["dividends"], "summary": "Create dividend", "parameters": [{"$ref": "#/parameters/portfolioID"}], "responses": {"201": {"description": "Dividend created"}}}
        },
        "/portfolios/{id}/dividends/{dividend_id}": {
            "put": {"tags": ["dividends"], "summary": "Update dividend", "parameters": [{"$ref": "#/parameters/portfolioID"}, {"type": "string", "name": "dividend_id", "in": "path", "required": true}], "responses": {"200": {"description": "Dividend updated"}}},
            "delete": {"tags": ["dividends"], "summary": "Delete dividend", "parameters": [{"$ref": "#/parameters/portfolioID"}, {"type": "string", "name": "dividend_id", "in": "path", "required": true}], "responses": {"200": {"description": "Dividend deleted"}}}
        },
        "/portfolios/{id}/cash-flows": {
            "get": {"tags": ["analytics"], "summary": "Get cash flows", "parameters": [{"$ref": "#/parameters/portfolioID"}], "responses": {"200": {"description": "Cash-flow ledger"}}}
        },
        "/portfolios/{id}/cash-flows/sync-status": {
            "get": {"tags": ["analytics"], "summary": "Get cash-flow sync status", "parameters": [{"$ref": "#/parameters/portfolioID"}], "responses": {"200": {"description": "Sync status"}}}
        },
        "/portfolios/{id}/cash-flows/regenerate": {
            "post": {"tags": ["analytics"], "summary": "Regenerate cash flows", "parameters": [{"$ref": "#/parameters/portfolioID"}], "responses": {"200": {"description": "Number of rows written"}}}
        },
        "/portfolios/{id}/holdings": {
            "get": {"tags": ["analytics"], "summary": "Get holdings", "parameters": [{"$ref": "#/parameters/portfolioID"}], "responses": {"200": {"description": "Shares per ticker"}}}
        },
        "/portfolios/{id}/value": {
            "get": {"tags": ["analytics"], "summary": "Get portfolio value", "parameters": [{"$ref": "#/parameters/portfolioID"}], "responses": {"200": {"description": "Valuation"}}}
        },
        "/portfolios/{id}/summary": {
            "get": {"tags": ["analytics"], "summary": "Get portfolio summary", "parameters": [{"$ref": "#/parameters/portfolioID"}], "responses": {"200": {"description": "Summary"}}}
        },
        "/portfolios/{id}/irr": {
            "get": {"tags": ["analytics"], "summary": "Get latest IRR", "parameters": [{"$ref": "#/parameters/portfolioID"}], "responses": {"200": {"description": "Latest IRR"}}},
            "post": {"tags": ["analytics"], "summary": "Calculate IRR", "parameters": [{"$ref": "#/parameters/portfolioID"}], "responses": {"201": {"description": "New IRR calculation"}}}
        },
        "/portfolios/{id}/irr/history": {
            "get": {"tags": ["analytics"], "summary": "List IRR history", "parameters": [{"$ref": "#/parameters/portfolioID"}], "responses": {"200": {"description": "Paginated IRR history"}}}
        },
        "/portfolios/{id}/benchmarks": {
            "get": {"tags": ["benchmarks"], "summary": "Compare with benchmarks", "parameters": [{"$ref": "#/parameters/portfolioID"}, {"type": "string", "name": "tickers", "in": "query"}], "responses": {"200": {"description": "Comparison"}}}
        },
        "/portfolios/{id}/benchmarks/{ticker}": {
            "get": {"tags": ["benchmarks"], "summary": "Get benchmark summary", "parameters": [{"$ref": "#/parameters/portfolioID"}, {"$ref": "#/parameters/ticker"}], "responses": {"200": {"description": "Benchmark summary"}}}
        },
        "/portfolios/{id}/benchmarks/{ticker}/cash-flows": {
            "get": {"tags": ["benchmarks"], "summary": "Get benchmark cash flows", "parameters": [{"$ref": "#/parameters/portfolioID"}, {"$ref": "#/parameters/ticker"}], "responses": {"200": {"description": "Benchmark ledger"}}}
        },
        "/pipeline/prices/refresh": {
            "get": {"security": [{"ApiKeyAuth": []}], "tags": ["pipeline"], "summary": "Get refresh status", "responses": {"200": {"description": "Refresh progress"}}},
            "post": {"security": [{"ApiKeyAuth": []}], "tags": ["pipeline"], "summary": "Refresh prices", "responses": {"202": {"description": "Refresh queued"}, "409": {"description": "Refresh already running", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}}}
        }
    },
    "parameters": {
        "portfolioID": {"type": "string", "description": "Portfolio ID", "name": "id", "in": "path", "required": true},
        "ticker": {"type": "string", "description": "ETF ticker", "name": "ticker", "in": "path", "required": true}
    },
    "definitions": {
        "handlers.ErrorDetail": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}}
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"$ref": "#/definitions/handlers.ErrorDetail"}}
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "X-API-Key", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Folio API",
	Description:      "Portfolio analytics: cash-flow ledger, IRR, valuation and ETF benchmark comparison.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
