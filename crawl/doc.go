// Package crawl fetches web pages through an external crawl/render service.
//
// The service contract is a single POST {BaseURL}/scrape with a JSON body
// {"url": ..., "pageOptions": {"onlyMainContent": true}} and a bearer
// credential. Any backend honouring that request and the
// {success, data:{markdown, content, metadata}, error} response shape can be
// substituted.
//
// Returned content has already passed through normalize.Normalize.
package crawl
