package material

// Names of the catalog entries used by the detector.
const (
	Galactic           = "G4_Galactic"
	Air                = "G4_AIR"
	Copper             = "Copper"
	FluorinatedPolymer = "FluorinatedPolymer"
	PMMA               = "PMMA"
	Polystyrene        = "Polystyrene"
	Glass              = "Glass"
	Silicon            = "Silicon"
	Gelatin            = "Gelatin"
	Aluminum           = "Aluminum"

	SiPMSurf   = "SiPMSurf"
	FilterSurf = "FilterSurf"
	MirrorSurf = "MirrorSurf"
)

// Default returns a catalog holding every material and surface the
// detector construction asks for.
func Default() *Catalog {
	c := NewCatalog()
	for _, m := range []*Material{
		{Name: Galactic, Density: 1e-25},
		{Name: Air, Density: 0.00120479},
		{Name: Copper, Density: 8.96},
		{Name: FluorinatedPolymer, Density: 1.43},
		{Name: PMMA, Density: 1.19},
		{Name: Polystyrene, Density: 1.05},
		{Name: Glass, Density: 2.4},
		{Name: Silicon, Density: 2.33},
		{Name: Gelatin, Density: 1.27},
		{Name: Aluminum, Density: 2.699},
	} {
		c.AddMaterial(m)
	}
	for _, s := range []*Surface{
		{Name: SiPMSurf, Type: DielectricMetal, Finish: "polished", Reflectivity: 0},
		{Name: FilterSurf, Type: DielectricDielectric, Finish: "polished", Reflectivity: 0},
		{Name: MirrorSurf, Type: DielectricMetal, Finish: "polished", Reflectivity: 0.9},
	} {
		c.AddSurface(s)
	}
	return c
}
