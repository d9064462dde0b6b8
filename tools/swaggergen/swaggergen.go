// Command swaggergen generates OpenAPI 3.0 specification files (JSON and YAML)
// for the character browser API and writes them to the api/ directory.
//
// Usage:
//
//	go run ./tools/swaggergen
//
// # For Contributors
//
// When you modify the API (add/change endpoints, request/response schemas, etc.),
// update this file to keep the swagger spec in sync:
//
//  1. Endpoints: Edit buildPaths() to add/modify path items and operations
//  2. Schemas: Edit buildSchemas() to add/modify request/response types
//  3. Regenerate: Run `go run ./tools/swaggergen` from the project root
//  4. Verify: Check api/swagger.yaml and api/swagger.json for correctness
//
// Helper functions:
//   - errContent(): Returns standard error response content (reuse for error responses)
//   - jsonContent(): Returns a JSON response body referencing a component schema
//   - characterIDParam(): Returns the {characterID} path parameter definition
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Lightweight OpenAPI 3.0 types
// ---------------------------------------------------------------------------

type OpenAPI struct {
	OpenAPI    string               `json:"openapi"              yaml:"openapi"`
	Info       Info                 `json:"info"                 yaml:"info"`
	Paths      map[string]*PathItem `json:"paths"                yaml:"paths"`
	Components Components           `json:"components"           yaml:"components"`
}

type Info struct {
	Title       string `json:"title"       yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Version     string `json:"version"     yaml:"version"`
}

type PathItem struct {
	Get    *Operation `json:"get,omitempty"    yaml:"get,omitempty"`
	Post   *Operation `json:"post,omitempty"   yaml:"post,omitempty"`
	Put    *Operation `json:"put,omitempty"    yaml:"put,omitempty"`
	Delete *Operation `json:"delete,omitempty" yaml:"delete,omitempty"`
}

type Operation struct {
	Tags        []string              `json:"tags"                  yaml:"tags"`
	Summary     string                `json:"summary"               yaml:"summary"`
	Description string                `json:"description,omitempty" yaml:"description,omitempty"`
	OperationID string                `json:"operationId"           yaml:"operationId"`
	Security    []map[string][]string `json:"security,omitempty"    yaml:"security,omitempty"`
	Parameters  []Parameter           `json:"parameters,omitempty"  yaml:"parameters,omitempty"`
	RequestBody *RequestBody          `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   map[string]Response   `json:"responses"             yaml:"responses"`
}

type Parameter struct {
	Name        string `json:"name"        yaml:"name"`
	In          string `json:"in"          yaml:"in"`
	Description string `json:"description" yaml:"description"`
	Required    bool   `json:"required"    yaml:"required"`
	Schema      Schema `json:"schema"      yaml:"schema"`
}

type RequestBody struct {
	Required    bool                 `json:"required"              yaml:"required"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	Content     map[string]MediaType `json:"content"               yaml:"content"`
}

type MediaType struct {
	Schema Schema `json:"schema" yaml:"schema"`
}

type Response struct {
	Description string               `json:"description"       yaml:"description"`
	Content     map[string]MediaType `json:"content,omitempty" yaml:"content,omitempty"`
}

type Schema struct {
	Type                 string            `json:"type,omitempty"                 yaml:"type,omitempty"`
	Format               string            `json:"format,omitempty"               yaml:"format,omitempty"`
	Description          string            `json:"description,omitempty"          yaml:"description,omitempty"`
	Properties           map[string]Schema `json:"properties,omitempty"           yaml:"properties,omitempty"`
	Items                *Schema           `json:"items,omitempty"                yaml:"items,omitempty"`
	Required             []string          `json:"required,omitempty"             yaml:"required,omitempty"`
	Enum                 []string          `json:"enum,omitempty"                 yaml:"enum,omitempty"`
	Ref                  string            `json:"$ref,omitempty"                 yaml:"$ref,omitempty"`
	AdditionalProperties *Schema           `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
	OneOf                []Schema          `json:"oneOf,omitempty"                yaml:"oneOf,omitempty"`
	Example              any               `json:"example,omitempty"              yaml:"example,omitempty"`
}

type Components struct {
	Schemas         map[string]Schema         `json:"schemas"         yaml:"schemas"`
	SecuritySchemes map[string]SecurityScheme `json:"securitySchemes" yaml:"securitySchemes"`
}

type SecurityScheme struct {
	Type         string `json:"type"         yaml:"type"`
	Scheme       string `json:"scheme"       yaml:"scheme"`
	BearerFormat string `json:"bearerFormat" yaml:"bearerFormat"`
	Description  string `json:"description"  yaml:"description"`
}

// ---------------------------------------------------------------------------
// Spec builder
// ---------------------------------------------------------------------------

func buildSpec() OpenAPI {
	bearerAuth := []map[string][]string{{"BearerAuth": {}}}

	return OpenAPI{
		OpenAPI: "3.0.3",
		Info: Info{
			Title:       "Character Browser API",
			Description: "Browse Rick and Morty characters page by page and keep a per-user favourites list.",
			Version:     "1.0.0",
		},
		Paths: buildPaths(bearerAuth),
		Components: Components{
			Schemas:         buildSchemas(),
			SecuritySchemes: buildSecuritySchemes(),
		},
	}
}

func buildPaths(bearerAuth []map[string][]string) map[string]*PathItem {
	unauthorized := Response{Description: "Unauthorized - missing or invalid JWT", Content: errContent()}
	notAcceptable := Response{Description: "Accept header does not allow application/json", Content: errContent()}

	return map[string]*PathItem{
		"/api/v1/characters": {
			Get: &Operation{
				Tags:        []string{"Characters"},
				Summary:     "Query characters",
				Description: "Applies page, status and name to the user's browser. A changed filter triggers one fetch from the character API; absent parameters keep their current value.",
				OperationID: "getCharacters",
				Security:    bearerAuth,
				Parameters: []Parameter{
					{Name: "page", In: "query", Description: "1-based page number", Schema: Schema{Type: "integer", Example: 1}},
					{Name: "status", In: "query", Description: "Status filter", Schema: Schema{Type: "string", Enum: []string{"all", "alive", "dead", "unknown"}}},
					{Name: "name", In: "query", Description: "Name search, sent as typed", Schema: Schema{Type: "string"}},
				},
				Responses: map[string]Response{
					"200": {Description: "The browser view", Content: jsonContent("BrowserView")},
					"400": {Description: "Validation error", Content: errContent()},
					"401": unauthorized,
					"406": notAcceptable,
				},
			},
		},
		"/api/v1/characters/view": {
			Get: &Operation{
				Tags:        []string{"Characters"},
				Summary:     "Current view",
				Description: "Returns the browser view without changing the filter. The first call loads page 1.",
				OperationID: "getView",
				Security:    bearerAuth,
				Responses: map[string]Response{
					"200": {Description: "The browser view", Content: jsonContent("BrowserView")},
					"401": unauthorized,
					"406": notAcceptable,
				},
			},
		},
		"/api/v1/characters/next": {
			Post: &Operation{
				Tags:        []string{"Characters"},
				Summary:     "Next page",
				OperationID: "nextPage",
				Security:    bearerAuth,
				Responses: map[string]Response{
					"200": {Description: "The browser view", Content: jsonContent("BrowserView")},
					"401": unauthorized,
					"409": {Description: "Already on the last page", Content: errContent()},
				},
			},
		},
		"/api/v1/characters/prev": {
			Post: &Operation{
				Tags:        []string{"Characters"},
				Summary:     "Previous page",
				OperationID: "prevPage",
				Security:    bearerAuth,
				Responses: map[string]Response{
					"200": {Description: "The browser view", Content: jsonContent("BrowserView")},
					"401": unauthorized,
					"409": {Description: "Already on the first page", Content: errContent()},
				},
			},
		},
		"/api/v1/selection/{characterID}": {
			Put: &Operation{
				Tags:        []string{"Selection"},
				Summary:     "Open character details",
				Description: "Selects a character from the displayed page.",
				OperationID: "openCharacter",
				Security:    bearerAuth,
				Parameters:  []Parameter{characterIDParam()},
				Responses: map[string]Response{
					"200": {Description: "The browser view with the selection", Content: jsonContent("BrowserView")},
					"400": {Description: "Invalid character ID", Content: errContent()},
					"401": unauthorized,
					"404": {Description: "Character is not on the current page", Content: errContent()},
				},
			},
		},
		"/api/v1/selection": {
			Delete: &Operation{
				Tags:        []string{"Selection"},
				Summary:     "Close character details",
				OperationID: "closeCharacter",
				Security:    bearerAuth,
				Responses: map[string]Response{
					"200": {Description: "The browser view without selection", Content: jsonContent("BrowserView")},
					"401": unauthorized,
				},
			},
		},
		"/api/v1/selection/favourite": {
			Post: &Operation{
				Tags:        []string{"Favourites"},
				Summary:     "Toggle favourite",
				Description: "Adds the selected character to the favourites or removes it. The list is written to the user's record when it differs from the stored one; store failures are logged and do not undo the toggle.",
				OperationID: "toggleFavourite",
				Security:    bearerAuth,
				Responses: map[string]Response{
					"200": {Description: "Favourites after the toggle", Content: jsonContent("Favourites")},
					"401": unauthorized,
					"409": {Description: "No character selected", Content: errContent()},
				},
			},
		},
		"/api/v1/favourites": {
			Get: &Operation{
				Tags:        []string{"Favourites"},
				Summary:     "List favourites",
				OperationID: "getFavourites",
				Security:    bearerAuth,
				Responses: map[string]Response{
					"200": {Description: "Favourite character IDs", Content: jsonContent("Favourites")},
					"401": unauthorized,
				},
			},
		},
		"/api/v1/me": {
			Put: &Operation{
				Tags:        []string{"Users"},
				Summary:     "Create user record",
				Description: "Creates an empty favourites record for the signed-in user if none exists. Favourites are only persisted for users with a record.",
				OperationID: "registerUser",
				Security:    bearerAuth,
				Responses: map[string]Response{
					"200": {Description: "Record exists", Content: jsonContent("SuccessMessage")},
					"400": {Description: "Token identity is not an email address", Content: errContent()},
					"401": unauthorized,
					"500": {Description: "Internal server error", Content: errContent()},
				},
			},
		},
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func characterIDParam() Parameter {
	return Parameter{
		Name:        "characterID",
		In:          "path",
		Description: "ID of a character on the current page",
		Required:    true,
		Schema:      Schema{Type: "integer"},
	}
}

func jsonContent(schema string) map[string]MediaType {
	return map[string]MediaType{
		"application/json": {Schema: Schema{Ref: "#/components/schemas/" + schema}},
	}
}

func errContent() map[string]MediaType {
	return jsonContent("ErrorResponse")
}

func buildSecuritySchemes() map[string]SecurityScheme {
	return map[string]SecurityScheme{
		"BearerAuth": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
			Description:  "JWT token with an 'email' claim (or 'sub') identifying the user. Also accepted as the session cookie.",
		},
	}
}

func buildSchemas() map[string]Schema {
	place := Schema{
		Type: "object",
		Properties: map[string]Schema{
			"name": {Type: "string"},
			"url":  {Type: "string"},
		},
	}

	return map[string]Schema{
		"ErrorResponse": {
			Type: "object",
			Properties: map[string]Schema{
				"error": {Type: "string", Description: "Human-readable error message"},
			},
			Required: []string{"error"},
		},
		"SuccessMessage": {
			Type: "object",
			Properties: map[string]Schema{
				"message": {Type: "string", Description: "Success message"},
			},
			Required: []string{"message"},
		},
		"Character": {
			Type:        "object",
			Description: "A character as returned by the character API.",
			Properties: map[string]Schema{
				"id":       {Type: "integer"},
				"name":     {Type: "string"},
				"status":   {Type: "string", Enum: []string{"Alive", "Dead", "unknown"}},
				"species":  {Type: "string"},
				"type":     {Type: "string"},
				"gender":   {Type: "string"},
				"origin":   place,
				"location": place,
				"image":    {Type: "string", Description: "Avatar URL"},
				"episode":  {Type: "array", Items: &Schema{Type: "string"}},
				"url":      {Type: "string"},
				"created":  {Type: "string", Format: "date-time"},
			},
			Required: []string{"id", "name", "status"},
		},
		"BrowserView": {
			Type:        "object",
			Description: "Snapshot of the user's browser.",
			Properties: map[string]Schema{
				"characters":         {Type: "array", Items: &Schema{Ref: "#/components/schemas/Character"}},
				"page":               {Type: "integer"},
				"total_pages":        {Type: "integer", Description: "1 when the last query was empty or failed"},
				"status":             {Type: "string", Enum: []string{"all", "alive", "dead", "unknown"}},
				"name":               {Type: "string"},
				"has_prev":           {Type: "boolean"},
				"has_next":           {Type: "boolean"},
				"selected":           {Ref: "#/components/schemas/Character"},
				"selected_favourite": {Type: "boolean"},
				"favourites":         {Type: "array", Items: &Schema{Type: "integer"}},
				"message":            {Type: "string", Description: "Empty-state message", Example: `No results found for "Zzz".`},
			},
			Required: []string{"characters", "page", "total_pages", "status", "name", "has_prev", "has_next", "favourites"},
		},
		"Favourites": {
			Type: "object",
			Properties: map[string]Schema{
				"favourites":   {Type: "array", Items: &Schema{Type: "integer"}, Description: "Favourite character IDs in toggle order"},
				"character_id": {Type: "integer", Description: "The toggled character"},
				"favourite":    {Type: "boolean", Description: "Whether the toggled character is now a favourite"},
			},
			Required: []string{"favourites"},
		},
	}
}

// ---------------------------------------------------------------------------
// File writers
// ---------------------------------------------------------------------------

func writeJSON(spec OpenAPI, path string) error {
	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0644)
}

func writeYAML(spec OpenAPI, path string) error {
	data, err := yaml.Marshal(spec)
	if err != nil {
		return fmt.Errorf("marshal YAML: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func main() {
	_, src, _, _ := runtime.Caller(0)
	outDir := filepath.Join(filepath.Join(filepath.Dir(src), "..", ".."), "api")

	if err := os.MkdirAll(outDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create api/ directory: %v\n", err)
		os.Exit(1)
	}

	spec := buildSpec()

	jsonPath := filepath.Join(outDir, "swagger.json")
	if err := writeJSON(spec, jsonPath); err != nil {
		fmt.Fprintf(os.Stderr, "error writing JSON: %v\n", err)
		os.Exit(1)
	}

	yamlPath := filepath.Join(outDir, "swagger.yaml")
	if err := writeYAML(spec, yamlPath); err != nil {
		fmt.Fprintf(os.Stderr, "error writing YAML: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Swagger specs generated:\n  %s\n  %s\n", jsonPath, yamlPath)
}
