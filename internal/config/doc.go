// Package config loads consoleroutes.json.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "host": "0.0.0.0",
//	    "port": 8080,
//	    "shell": "dist/index.html",
//	    "static": "dist/static"
//	  },
//	  "routes": {
//	    "variant": "schedule",
//	    "manifest": "routes.yaml",
//	    "watch": true
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "consoleroutes"
//	  },
//	  "tracing": {
//	    "enabled": false
//	  }
//	}
//
// Relative paths are resolved against the directory holding the file.
package config
