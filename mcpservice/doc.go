// Package mcpservice holds the catalogs the dispatcher serves: tools, prompts
// and resources. Each catalog is read-only from the dispatcher's point of view
// and safe to share across sessions.
//
// Tools are declared with typed argument structs; the input schema advertised
// in tools/list is reflected from the struct:
//
//	type LookupArgs struct {
//	    ID int `json:"id" jsonschema:"description=Category id"`
//	}
//
//	tools := mcpservice.NewToolsContainer(
//	    mcpservice.NewTool("lookup", func(ctx context.Context, sess *sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[LookupArgs]) error {
//	        return w.AppendText(fmt.Sprintf("looked up %d", r.Args().ID))
//	    }, mcpservice.WithToolDescription("Look something up")),
//	)
//
// Resources can come from a fixed list (StaticResources), from a directory on
// disk that is re-scanned when files change (FSResources), or from several of
// those merged together (MultiResources).
package mcpservice
