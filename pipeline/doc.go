// Copyright 2014 The Transporter Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline turns a tree of stage definitions into a single runnable unit.
//
// A definition is either a Leaf naming a stage type, a Sequence piping its stages into
// one another, a Fan combining sibling stages, or a Raw unit built elsewhere. They are
// usually parsed from a document:
//
//	version: 1.0.0
//	stream:
//	  - combine:
//	      - type: file-read
//	        options: {uri: "file:///tmp/a.json"}
//	      - type: file-read
//	        options: {uri: "file:///tmp/b.json"}
//	  - type: map-selector
//	    options:
//	      mapping:
//	        title: name
//	        "custom://color": ["colour", "color"]
//	  - type: file-write
//	    options: {uri: "stdout://"}
//
// and composed with a Factory creating the concrete units for each leaf:
//
//	doc, err := pipeline.ParseDocument(b)
//	if err != nil {
//		return err
//	}
//	u, err := pipeline.Compose(doc.Pipeline, pipeline.ComposeOptions{Factory: factory})
//	if err != nil {
//		return err
//	}
//	return u.(pipe.Runner).Run(ctx)
//
// Compose validates the whole tree before returning: direction, factory and shape
// errors never hand back a partially wired unit.
package pipeline
