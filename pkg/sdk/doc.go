// Package sdk is a small Go client for the gamedex search API.
//
// Construct a Client with New and call its methods with a context:
//
//	client := sdk.New("http://localhost:8080", sdk.WithAPIKey("secret"))
//	resp, err := client.Search(ctx, sdk.SearchParams{Query: "roguelike deckbuilder"})
package sdk
