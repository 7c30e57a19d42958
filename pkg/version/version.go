package version

//Version of the drone, checked against plugin version constraints. Overridden at build time with
//-ldflags "-X github.com/adedayo/checkmate-drone/pkg/version.Version=x.y.z"
var Version = "1.0.0"
