// Package gatekit provides slug-based roles and permissions for Go services.
//
// Subjects (users, API clients, anything with a string id) hold roles and direct
// permissions. Roles bundle permissions. Checks are answered from an in-memory
// snapshot of the subject's grants, optionally cached in Redis.
//
// # Core Concepts
//
// Role: a named bundle of permissions identified by a slug such as "editor".
// The "super-admin" role bypasses every permission check.
//
// Permission: an atomic capability identified by a slug such as "edit-posts".
// The reserved "*" permission makes its holder a super-admin, whether it is held
// directly or through a role.
//
// Checker: the evaluator for one subject. HasRole and HasPermission take several
// slugs and pass when any of them matches; HasAllRoles and HasAllPermissions need
// every slug.
//
// Gate: a registry of named abilities. Every stored permission is registered as
// an ability of the same name.
//
// # Basic Usage
//
//	// 1. Create the store and run migrations
//	store := gatekit.NewDBStore(db)
//	if _, err := store.Migrate(ctx); err != nil {
//	    return err
//	}
//
//	// 2. Create the service and register permission gates
//	service := gatekit.NewService(store,
//	    gatekit.WithCache(gatekit.NewRedisCache(rdb, "")),
//	    gatekit.WithLogger(logger),
//	).Boot(ctx)
//
//	// 3. Seed the baseline roles and permissions
//	if err := gatekit.DefaultBlueprint().Apply(ctx, service); err != nil {
//	    return err
//	}
//	service.RefreshGates(ctx)
//
//	// 4. Assign roles and permissions
//	service.AssignRole(ctx, userID, "editor")
//	service.GivePermissionTo(ctx, userID, "delete-posts")
//
//	// 5. Check
//	if service.HasPermission(ctx, userID, "edit-posts") {
//	    // ...
//	}
//
// # Middleware Usage
//
//	mw := gatekit.NewMiddleware(service,
//	    gatekit.WithSubjectExtractor(func(r *http.Request) string {
//	        return session.UserID(r)
//	    }),
//	)
//
//	router.Use(mw.InjectAuditContext())
//	router.With(mw.RequireRole("admin|editor")).Get("/admin", adminHandler)
//	router.With(mw.RequirePermission("edit-posts")).Put("/posts/{id}", updateHandler)
//	router.With(mw.RequireRoleOrPermission("admin|manage-roles")).Post("/roles", rolesHandler)
//
// Denied requests get a 403 with a fixed message, as JSON when the client asks
// for it.
//
// # Templates
//
//	tmpl := template.New("page").Funcs(service.TemplateFuncs(gatekit.CheckerFromContext(ctx)))
//
//	{{ if haspermission "edit-posts" }}<a href="/edit">Edit</a>{{ end }}
//	{{ if can "publish-posts" }}<button>Publish</button>{{ end }}
//
// # Settings
//
// SettingsManager stores typed application and per-owner settings:
//
//	settings := gatekit.NewSettingsManager(gatekit.NewDBSettingsStore(db),
//	    gatekit.WithSettingsCache(cache))
//	settings.Set(ctx, "mail", "from", "noreply@example.com")
//	theme, _ := settings.ForOwner("user", userID).GetString(ctx, "ui", "theme", "light")
package gatekit
