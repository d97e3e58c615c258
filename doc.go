// Package site provides typed bindings for the site host commands.
//
// A site is a named collection of files (HTML, CSS, scripts, project data)
// with alternate names. The host owns storage and hashing; this package
// only marshals named arguments, forwards them through an Invoker and
// decodes the result. Failures come back unchanged.
//
// Basic usage:
//
//	client := site.NewClient(inv)
//
//	s, _ := client.CreateSite(ctx, "blog")
//	s, _ = client.SaveFile(ctx, s, "<h1>hi</h1>", site.AssetHTML)
//
//	f, _ := s.File(site.AssetHTML)
//	body, _ := client.LoadFile(ctx, s.Name, f.Digest.Value)
//
//	if _, err := client.LoadSite(ctx, "missing"); site.IsNotFound(err) {
//	    // no such site
//	}
//
// Any type with an Invoke method can carry the calls: an in-process host,
// a pipe to a host process, or a mock in tests.
package site
