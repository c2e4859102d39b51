// Package manifest reads route declarations from YAML or JSON documents.
//
// A manifest names views by component id; ids are resolved against a
// views.Registry when the manifest is parsed:
//
//	routes:
//	  - path: /
//	    name: login
//	    component: Login
//	  - path: /Index
//	    name: index
//	    component: Index
//	    children:
//	      - path: /Home
//	        name: home
//	        component: Home
//	        title: 系统首页
//	      - path: /Test
//	        redirect: /ScheduleAlgorithm
//
// Manifests can be read from disk (LoadFile), from S3 (S3Source) and
// reloaded into a live table when the file changes (Watcher).
package manifest
