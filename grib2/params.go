package grib2

// Parameter describes a field in ecCodes vocabulary.
type Parameter struct {
	Name      string
	ShortName string
	Units     string
}

var unknownParameter = Parameter{Name: "unknown", ShortName: "unknown", Units: "unknown"}

type paramKey struct {
	discipline, category, number byte
}

// surfaceKey narrows a parameter to one fixed surface, e.g. 2 m above ground.
type surfaceKey struct {
	paramKey
	surface byte
	level   int
}

// surfaceParams take precedence over params.
var surfaceParams = map[surfaceKey]Parameter{
	{paramKey{0, 0, 0}, SurfaceHeightAboveGround, 2}:  {"2 metre temperature", "2t", "K"},
	{paramKey{0, 0, 6}, SurfaceHeightAboveGround, 2}:  {"2 metre dewpoint temperature", "2d", "K"},
	{paramKey{0, 1, 0}, SurfaceHeightAboveGround, 2}:  {"2 metre specific humidity", "2sh", "kg kg**-1"},
	{paramKey{0, 1, 1}, SurfaceHeightAboveGround, 2}:  {"2 metre relative humidity", "2r", "%"},
	{paramKey{0, 2, 1}, SurfaceHeightAboveGround, 10}: {"10 metre wind speed", "10si", "m s**-1"},
	{paramKey{0, 2, 2}, SurfaceHeightAboveGround, 10}: {"10 metre U wind component", "10u", "m s**-1"},
	{paramKey{0, 2, 3}, SurfaceHeightAboveGround, 10}: {"10 metre V wind component", "10v", "m s**-1"},
	{paramKey{0, 3, 0}, SurfaceMeanSea, 0}:            {"Mean sea level pressure", "msl", "Pa"},
}

var params = map[paramKey]Parameter{
	{0, 0, 0}:    {"Temperature", "t", "K"},
	{0, 0, 2}:    {"Potential temperature", "pt", "K"},
	{0, 0, 4}:    {"Maximum temperature", "tmax", "K"},
	{0, 0, 5}:    {"Minimum temperature", "tmin", "K"},
	{0, 0, 6}:    {"Dew point temperature", "dpt", "K"},
	{0, 1, 0}:    {"Specific humidity", "q", "kg kg**-1"},
	{0, 1, 1}:    {"Relative humidity", "r", "%"},
	{0, 1, 3}:    {"Precipitable water", "pwat", "kg m**-2"},
	{0, 1, 7}:    {"Precipitation rate", "prate", "kg m**-2 s**-1"},
	{0, 1, 8}:    {"Total Precipitation", "tp", "kg m**-2"},
	{0, 1, 11}:   {"Snow depth", "sde", "m"},
	{0, 2, 0}:    {"Wind direction", "wdir", "Degree true"},
	{0, 2, 1}:    {"Wind speed", "ws", "m s**-1"},
	{0, 2, 2}:    {"U component of wind", "u", "m s**-1"},
	{0, 2, 3}:    {"V component of wind", "v", "m s**-1"},
	{0, 2, 8}:    {"Vertical velocity", "w", "Pa s**-1"},
	{0, 2, 10}:   {"Absolute vorticity", "absv", "s**-1"},
	{0, 2, 22}:   {"Wind speed (gust)", "gust", "m s**-1"},
	{0, 3, 0}:    {"Pressure", "pres", "Pa"},
	{0, 3, 1}:    {"Pressure reduced to MSL", "prmsl", "Pa"},
	{0, 3, 5}:    {"Geopotential height", "gh", "gpm"},
	{0, 6, 1}:    {"Total Cloud Cover", "tcc", "%"},
	{0, 7, 6}:    {"Convective available potential energy", "cape", "J kg**-1"},
	{0, 7, 7}:    {"Convective inhibition", "cin", "J kg**-1"},
	{0, 16, 196}: {"Maximum/Composite radar reflectivity", "refc", "dB"},
	{0, 19, 0}:   {"Visibility", "vis", "m"},
	{2, 0, 0}:    {"Land-sea mask", "lsm", "(0 - 1)"},
	{10, 0, 3}:   {"Significant height of combined wind waves and swell", "swh", "m"},
}

// LookupParameter resolves a parameter, preferring the surface-specific
// name (e.g. "2 metre temperature" over "Temperature").
func LookupParameter(discipline byte, p Product) Parameter {
	k := paramKey{discipline, p.Category, p.Number}
	if sp, ok := surfaceParams[surfaceKey{k, p.SurfaceType, p.Level()}]; ok {
		return sp
	}
	if gp, ok := params[k]; ok {
		return gp
	}
	return unknownParameter
}
