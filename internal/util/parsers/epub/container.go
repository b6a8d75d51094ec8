package epub

type Container struct {
	Rootfile Rootfile `xml:"rootfiles>rootfile" json:"rootfile"`
}

type Rootfile struct {
	Fullpath string `xml:"full-path,attr"`
	Type     string `xml:"media-type,attr"`
}

// Opf is the package document: metadata, manifest and spine.
type Opf struct {
	Metadata Metadata   `xml:"metadata" json:"metadata"`
	Manifest []Manifest `xml:"manifest>item" json:"manifest"`
	Spine    Spine      `xml:"spine" json:"spine"`
}

type Metadata struct {
	Title       []string     `xml:"title" json:"title"`
	Language    []string     `xml:"language" json:"language"`
	Identifier  []Identifier `xml:"identifier" json:"identifier"`
	Creator     []Author     `xml:"creator" json:"creator"`
	Publisher   []string     `xml:"publisher" json:"publisher"`
	Description []string     `xml:"description" json:"description"`
	Date        []Date       `xml:"date" json:"date"`
	Meta        []Metafield  `xml:"meta" json:"meta"`
}

type Identifier struct {
	Data   string `xml:",chardata" json:"data"`
	ID     string `xml:"id,attr" json:"id"`
	Scheme string `xml:"scheme,attr" json:"scheme"`
}

type Author struct {
	Data   string `xml:",chardata" json:"author"`
	FileAs string `xml:"file-as,attr" json:"file_as"`
	Role   string `xml:"role,attr" json:"role"`
}

type Date struct {
	Data  string `xml:",chardata" json:"data"`
	Event string `xml:"event,attr" json:"event"`
}

// Metafield covers both the EPUB2 name/content form and the EPUB3 property form.
type Metafield struct {
	Name     string `xml:"name,attr" json:"name"`
	Content  string `xml:"content,attr" json:"content"`
	Property string `xml:"property,attr" json:"property"`
	Refines  string `xml:"refines,attr" json:"refines"`
	Data     string `xml:",chardata" json:"data"`
}

type Manifest struct {
	ID         string `xml:"id,attr" json:"id"`
	Href       string `xml:"href,attr" json:"href"`
	MediaType  string `xml:"media-type,attr" json:"type"`
	Properties string `xml:"properties,attr" json:"properties"`
	// Title is a non-standard attribute some generators put on spine documents.
	Title string `xml:"title,attr" json:"title"`
}

type Spine struct {
	Toc   string      `xml:"toc,attr" json:"toc"`
	Items []SpineItem `xml:"itemref" json:"items"`
}

type SpineItem struct {
	IDref  string `xml:"idref,attr" json:"id_ref"`
	Linear string `xml:"linear,attr" json:"linear"`
}
