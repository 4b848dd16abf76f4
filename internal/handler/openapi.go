package handler

import (
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPIHandler serves the OpenAPI 3.1 document for the gateway. The route
// surface is fixed, so the document is built once and cached.
type OpenAPIHandler struct {
	once sync.Once
	doc  *openapi3.T
}

// NewOpenAPIHandler creates an OpenAPIHandler.
func NewOpenAPIHandler() *OpenAPIHandler {
	return &OpenAPIHandler{}
}

// ServeSpec returns the gateway's OpenAPI document.
// GET /openapi.json
func (h *OpenAPIHandler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	h.once.Do(func() {
		h.doc = buildSpec()
	})
	writeJSON(w, http.StatusOK, h.doc)
}

func buildSpec() *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Giga Sharing Gateway",
			Description: "Access-controlled Delta Sharing gateway. Table data is served through the Delta Sharing protocol; keys, roles, and schemas are managed through the admin API.",
			Version:     "1.0.0",
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["sharingKey"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type: "apiKey",
			In:   "header",
			Name: "X-Giga-Sharing-Key",
		},
	}
	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:   "http",
			Scheme: "bearer",
		},
	}
	doc.Security = openapi3.SecurityRequirements{
		{"sharingKey": {}},
		{"bearerAuth": {}},
	}

	doc.Components.Schemas["ErrorResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"code":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
							"message": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
							"context": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
						},
					},
				},
			},
		},
	}
	doc.Components.Schemas["APIKey"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"id":          &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "uuid"}},
				"created":     &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"}},
				"description": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"expiration":  &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string", "null"}, Format: "date-time"}},
				"roles": &openapi3.SchemaRef{Value: &openapi3.Schema{
					Type:  &openapi3.Types{"array"},
					Items: &openapi3.SchemaRef{Ref: "#/components/schemas/Role"},
				}},
				"schemas": &openapi3.SchemaRef{Value: &openapi3.Schema{
					Type:  &openapi3.Types{"array"},
					Items: &openapi3.SchemaRef{Ref: "#/components/schemas/Schema"},
				}},
			},
		},
	}
	doc.Components.Schemas["ProfileFile"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"shareCredentialsVersion": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}},
				"endpoint":                &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"bearerToken":             &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"expirationTime":          &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string", "null"}, Format: "date-time"}},
			},
		},
	}
	doc.Components.Schemas["Role"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"id":          &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, MaxLength: uint64Ptr(5)}},
				"description": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
			},
		},
	}
	doc.Components.Schemas["Schema"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"id":          &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"description": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
			},
		},
	}

	doc.Paths = openapi3.NewPaths()
	addSharingPaths(doc)
	addAdminPaths(doc)
	return doc
}

func addSharingPaths(doc *openapi3.T) {
	jsonOp := func(summary, opID string) *openapi3.Operation {
		op := openapi3.NewOperation()
		op.Summary = summary
		op.OperationID = opID
		op.Tags = []string{"sharing"}
		op.AddResponse(200, openapi3.NewResponse().
			WithDescription("Success").
			WithJSONSchema(&openapi3.Schema{Type: &openapi3.Types{"object"}}))
		return op
	}
	ndjsonOp := func(summary, opID string) *openapi3.Operation {
		op := openapi3.NewOperation()
		op.Summary = summary
		op.OperationID = opID
		op.Tags = []string{"sharing"}
		resp := openapi3.NewResponse().WithDescription("Newline-delimited JSON action stream")
		resp.Content = openapi3.NewContentWithSchema(
			&openapi3.Schema{Type: &openapi3.Types{"string"}},
			[]string{"application/x-ndjson"},
		)
		op.AddResponse(200, resp)
		return op
	}

	doc.Paths.Set("/shares", &openapi3.PathItem{
		Get: jsonOp("List shares", "listShares"),
	})
	doc.Paths.Set("/shares/{share}", &openapi3.PathItem{
		Get: jsonOp("Get a share", "getShare"),
	})
	doc.Paths.Set("/shares/{share}/schemas", &openapi3.PathItem{
		Get: jsonOp("List schemas in a share", "listSchemas"),
	})
	doc.Paths.Set("/shares/{share}/schemas/{schema}/tables", &openapi3.PathItem{
		Get: jsonOp("List tables in a schema", "listTables"),
	})
	doc.Paths.Set("/shares/{share}/all-tables", &openapi3.PathItem{
		Get: jsonOp("List all tables in a share", "listAllTables"),
	})
	doc.Paths.Set("/shares/{share}/schemas/{schema}/tables/{table}/version", &openapi3.PathItem{
		Get: jsonOp("Get the current table version", "getTableVersion"),
	})
	doc.Paths.Set("/shares/{share}/schemas/{schema}/tables/{table}/metadata", &openapi3.PathItem{
		Get: ndjsonOp("Get table metadata", "getTableMetadata"),
	})
	doc.Paths.Set("/shares/{share}/schemas/{schema}/tables/{table}/query", &openapi3.PathItem{
		Post: ndjsonOp("Query table data", "queryTable"),
	})
	doc.Paths.Set("/shares/{share}/schemas/{schema}/tables/{table}/changes", &openapi3.PathItem{
		Get: ndjsonOp("Read the table change feed", "getTableChanges"),
	})
}

func addAdminPaths(doc *openapi3.T) {
	keyOp := func(summary, opID string, status int, schemaRef string) *openapi3.Operation {
		op := openapi3.NewOperation()
		op.Summary = summary
		op.OperationID = opID
		op.Tags = []string{"admin"}
		resp := openapi3.NewResponse().WithDescription(http.StatusText(status))
		if schemaRef != "" {
			resp.Content = openapi3.Content{
				"application/json": openapi3.NewMediaType().WithSchemaRef(&openapi3.SchemaRef{Ref: schemaRef}),
			}
		}
		op.AddResponse(status, resp)
		return op
	}
	keyListOp := func(summary, opID, itemRef string) *openapi3.Operation {
		op := openapi3.NewOperation()
		op.Summary = summary
		op.OperationID = opID
		op.Tags = []string{"admin"}
		op.AddResponse(200, openapi3.NewResponse().
			WithDescription("Success").
			WithJSONSchema(&openapi3.Schema{
				Type:  &openapi3.Types{"array"},
				Items: &openapi3.SchemaRef{Ref: itemRef},
			}))
		return op
	}

	doc.Paths.Set("/api-keys", &openapi3.PathItem{
		Get:  keyListOp("List API keys", "listAPIKeys", "#/components/schemas/APIKey"),
		Post: keyOp("Issue an API key", "createAPIKey", 201, "#/components/schemas/ProfileFile"),
	})
	doc.Paths.Set("/api-keys/me", &openapi3.PathItem{
		Get: keyOp("Get the calling key's record", "getOwnAPIKey", 200, "#/components/schemas/APIKey"),
	})
	doc.Paths.Set("/api-keys/{keyId}", &openapi3.PathItem{
		Get:    keyOp("Get an API key", "getAPIKey", 200, "#/components/schemas/APIKey"),
		Patch:  keyOp("Update an API key's grants", "updateAPIKey", 200, "#/components/schemas/APIKey"),
		Delete: keyOp("Revoke an API key", "revokeAPIKey", 204, ""),
	})
	doc.Paths.Set("/roles", &openapi3.PathItem{
		Get:  keyListOp("List roles", "listRoles", "#/components/schemas/Role"),
		Post: keyOp("Create a role", "createRole", 201, "#/components/schemas/Role"),
	})
	doc.Paths.Set("/schemas", &openapi3.PathItem{
		Get:  keyListOp("List grantable schemas", "listGrantSchemas", "#/components/schemas/Schema"),
		Post: keyOp("Register a grantable schema", "createGrantSchema", 201, "#/components/schemas/Schema"),
	})
}

func uint64Ptr(v uint64) *uint64 {
	return &v
}
