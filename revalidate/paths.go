package revalidate

import "strconv"

const (
	HomePath       = "/"
	ForumPath      = "/foro"
	HallOfFamePath = "/salon-de-la-fama"
	GalleryPath    = "/galeria"
	MarketPath     = "/mercado"
	ProfilePath    = "/perfil"
	AdminPath      = "/admin"
)

func AlbumPaths(albumID uint64) []string {
	return []string{GalleryPath, GalleryPath + "/" + strconv.FormatUint(albumID, 10), HomePath}
}

func ThreadPaths(threadID uint64) []string {
	return []string{ForumPath, ForumPath + "/" + strconv.FormatUint(threadID, 10), HomePath}
}

func HorsePaths(slug string) []string {
	paths := []string{HallOfFamePath, HomePath}
	if slug != "" {
		paths = append(paths, HallOfFamePath+"/"+slug)
	}
	return paths
}

func AdPaths() []string {
	return []string{MarketPath, HomePath}
}

func ProfilePaths(userID uint64) []string {
	return []string{ProfilePath + "/" + strconv.FormatUint(userID, 10)}
}

func AdminPaths() []string {
	return []string{AdminPath}
}

// Join concatenates path lists, Paths removes duplicates
func Join(lists ...[]string) []string {
	result := []string{}
	for _, l := range lists {
		result = append(result, l...)
	}
	return result
}
