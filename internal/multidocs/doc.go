// Package multidocs presents N independently configured instances of a
// content plugin to the build host as one plugin.
//
// Construct builds one instance per InstanceConfig, in configuration order,
// and tags each with its ID. Aggregator broadcasts every lifecycle hook to the
// instances that implement it and merges the results:
//
//   - ThemePath: the first instance's value.
//   - PathsToWatch: concatenation in configuration order.
//   - ClientModules: the admonitions stylesheet iff any config enables admonitions.
//   - LoadContent: concurrent; results tagged with the instance ID, absent ones dropped.
//   - ContentLoaded: concurrent; each instance receives only its own tagged slice.
//   - ConfigureWebpack: sequential deep-merge fold (see package webpack).
//
// Concurrent broadcasts are all-or-nothing: the call waits for every
// sub-call and fails if any instance fails. In-flight sub-calls are not
// cancelled.
package multidocs
