package location

import (
	"fmt"
	"time"
)

// demoPhotoBase hosts the placeholder objects referenced by fixture photos.
const demoPhotoBase = "https://isquat-demo.oss-ap-southeast-2.aliyuncs.com"

var aucklandDistricts = []string{
	"CBD",
	"Waterfront",
	"Ponsonby",
	"Parnell",
	"Orakei",
	"Mt Eden",
	"Epsom",
	"North Shore",
	"Henderson",
	"Newmarket",
	"Howick",
	"Manukau",
	"Albany",
}

func districtID(name string) string {
	return "d-" + Slugify(name)
}

// DefaultFixture returns the Auckland demo data set with timestamps relative
// to now.
func DefaultFixture(now time.Time) FixtureData {
	var data FixtureData
	for _, name := range aucklandDistricts {
		data.Districts = append(data.Districts, FixtureDistrict{
			ID:   districtID(name),
			Name: name,
			Slug: Slugify(name),
		})
	}

	approved := []FixtureToilet{
		{ID: "t1", Slug: "wynyard-wharf-restrooms", Name: "Wynyard Wharf Restrooms", DistrictID: districtID("Waterfront"),
			Address: "63 Jellicoe St, Auckland 1010", Lat: -36.8436, Lng: 174.7595, Rating: 4.8, ReviewCount: 312,
			Tags:        []string{"24h", "Accessible", "Waterfront"},
			AccessNotes: "Code needed after 10pm. Ask the kiosk next to the entry gate."},
		{ID: "t2", Slug: "britomart-transit-wc", Name: "Britomart Transit WC", DistrictID: districtID("CBD"),
			Address: "18 Galway St, Auckland 1010", Lat: -36.8441, Lng: 174.7687, Rating: 4.6, ReviewCount: 198,
			Tags:        []string{"Fast access", "Staffed", "Transit hub"},
			AccessNotes: "Entry is beside the ticket hall, open 6am to 11pm."},
		{ID: "t3", Slug: "aotea-square-facilities", Name: "Aotea Square Facilities", DistrictID: districtID("CBD"),
			Address: "291 Queen St, Auckland 1010", Lat: -36.8505, Lng: 174.7638, Rating: 4.5, ReviewCount: 224,
			Tags:        []string{"Family", "Baby change", "Near events"},
			AccessNotes: "Main doors face the plaza stage, signage is bright orange."},
		{ID: "t11", Slug: "skycity-lobby-restrooms", Name: "SkyCity Lobby Restrooms", DistrictID: districtID("CBD"),
			Address: "90 Federal St, Auckland 1010", Lat: -36.8492, Lng: 174.7623, Rating: 4.4, ReviewCount: 156,
			Tags:        []string{"24h", "Staffed", "Hotel lobby"},
			AccessNotes: "Restrooms are beside the concierge desk on the ground floor."},
		{ID: "t12", Slug: "chancery-lane-restrooms", Name: "Chancery Lane Restrooms", DistrictID: districtID("CBD"),
			Address: "64 Chancery St, Auckland 1010", Lat: -36.8457, Lng: 174.7705, Rating: 4.3, ReviewCount: 118,
			Tags:        []string{"Shopping", "Cafe nearby", "Weekdays"},
			AccessNotes: "Find the food court stairs; signage is above the entry."},
		{ID: "t4", Slug: "domain-wintergarden-wc", Name: "Domain Wintergarden WC", DistrictID: districtID("Parnell"),
			Address: "Auckland Domain, Park Rd, Auckland 1023", Lat: -36.8625, Lng: 174.7753, Rating: 4.7, ReviewCount: 176,
			Tags:        []string{"Garden walk", "Quiet", "Accessible"},
			AccessNotes: "Look for the glasshouse path, toilets are beside the lawn."},
		{ID: "t5", Slug: "mount-eden-summit-wc", Name: "Mount Eden Summit WC", DistrictID: districtID("Mt Eden"),
			Address: "1A View Rd, Auckland 1024", Lat: -36.8667, Lng: 174.7646, Rating: 4.4, ReviewCount: 109,
			Tags:        []string{"Scenic", "Windy", "Trail access"},
			AccessNotes: "Bring a jacket, the door swings wide on windy days."},
		{ID: "t6", Slug: "takapuna-beach-pavilion", Name: "Takapuna Beach Pavilion", DistrictID: districtID("North Shore"),
			Address: "21 The Strand, Takapuna 0622", Lat: -36.7939, Lng: 174.7743, Rating: 4.9, ReviewCount: 254,
			Tags:        []string{"Beach", "Showers", "Family"},
			AccessNotes: "Open 5am to midnight, showers on the west wing."},
		{ID: "t7", Slug: "cornwall-park-visitor-wc", Name: "Cornwall Park Visitor WC", DistrictID: districtID("Epsom"),
			Address: "R&L Glade, Auckland 1023", Lat: -36.8963, Lng: 174.7797, Rating: 4.6, ReviewCount: 142,
			Tags:        []string{"Visitor center", "Cafe nearby", "Accessible"},
			AccessNotes: "Entry behind the visitor desk, staff can open side gate."},
		{ID: "t8", Slug: "orakei-basin-boardwalk-wc", Name: "Orakei Basin Boardwalk WC", DistrictID: districtID("Orakei"),
			Address: "Orakei Basin, Auckland 1071", Lat: -36.8527, Lng: 174.8324, Rating: 4.3, ReviewCount: 87,
			Tags:        []string{"Boardwalk", "Jogger friendly", "Quiet"},
			AccessNotes: "Follow the boardwalk toward the east dock, signage is small."},
		{ID: "t9", Slug: "henderson-falls-trail-wc", Name: "Henderson Falls Trail WC", DistrictID: districtID("Henderson"),
			Address: "Falls Rd, Henderson 0612", Lat: -36.8612, Lng: 174.6169, Rating: 4.2, ReviewCount: 64,
			Tags:        []string{"Trail", "Picnic", "Park"},
			AccessNotes: "Located by the picnic tables, door latch is a bit stiff."},
		{ID: "t10", Slug: "howick-village-market-wc", Name: "Howick Village Market WC", DistrictID: districtID("Howick"),
			Address: "71 Picton St, Howick 2014", Lat: -36.9005, Lng: 174.9249, Rating: 4.5, ReviewCount: 91,
			Tags:        []string{"Market", "Weekend", "Family"},
			AccessNotes: "Follow the market lane to the end, toilets are behind stalls."},
	}
	// Listed newest first.
	for i := range approved {
		approved[i].Status = StatusApproved
		approved[i].CreatedAt = now.Add(-time.Duration(30+i) * 24 * time.Hour)
	}
	data.Toilets = approved

	days := func(n int) time.Time { return now.Add(-time.Duration(n) * 24 * time.Hour) }

	data.Reviews = []FixtureReview{
		{ID: "r1", ToiletID: "t1", UserName: "Kai", Rating: 5, Status: StatusApproved, CreatedAt: days(2),
			Body: "Bright, fresh scent, and plenty of stalls. Quick in and out."},
		{ID: "r2", ToiletID: "t1", UserName: "Harper", Rating: 5, Status: StatusApproved, CreatedAt: days(7),
			Body: "Lines move fast. Lighting is good for a quick touch up."},
		{ID: "r3", ToiletID: "t6", UserName: "Ava", Rating: 5, Status: StatusApproved, CreatedAt: days(3),
			Body: "Best beach facilities. The showers are a big win."},
		{ID: "r4", ToiletID: "t6", UserName: "Noah", Rating: 5, Status: StatusApproved, CreatedAt: days(5),
			Body: "Clean floors and good ventilation even on busy weekends."},
	}
	generic := []struct {
		name   string
		rating int
		age    int
		body   string
	}{
		{"Rowan", 4, 0, "Easy to spot and the sinks are stocked with soap."},
		{"Mia", 4, 1, "A bit busy but still tidy. Floors were dry on my visit."},
		{"Theo", 4, 3, "Solid option for a quick stop. Could use brighter signage."},
	}
	for _, t := range approved {
		if t.ID == "t1" || t.ID == "t6" {
			continue
		}
		for i, g := range generic {
			data.Reviews = append(data.Reviews, FixtureReview{
				ID:        fmt.Sprintf("%s-r%d", t.ID, 10+i),
				ToiletID:  t.ID,
				UserName:  g.name,
				Rating:    g.rating,
				Body:      g.body,
				Status:    StatusApproved,
				CreatedAt: days(g.age).Add(-time.Hour),
			})
		}
	}

	pendingReviews := []struct {
		id, toilet, by, body string
		rating, photos       int
	}{
		{"pr1", "t1", "Noah", "Clean floors, fresh scent, and short line.", 5, 2},
		{"pr2", "t3", "Harper", "Crowded after events but staff restock quickly.", 4, 1},
		{"pr3", "t6", "Theo", "Showers are spotless. Great for beach days.", 5, 3},
	}
	for i, pr := range pendingReviews {
		created := now.Add(-time.Duration(i+1) * time.Hour)
		data.Reviews = append(data.Reviews, FixtureReview{
			ID:        pr.id,
			ToiletID:  pr.toilet,
			UserName:  pr.by,
			Rating:    pr.rating,
			Body:      pr.body,
			Status:    StatusPending,
			CreatedAt: created,
		})
		for n := 0; n < pr.photos; n++ {
			key := fmt.Sprintf("reviews/demo/%s-%d.jpg", pr.id, n+1)
			data.Photos = append(data.Photos, FixturePhoto{
				ID:        fmt.Sprintf("%s-photo-%d", pr.id, n+1),
				ToiletID:  pr.toilet,
				ReviewID:  pr.id,
				Key:       key,
				URL:       demoPhotoBase + "/" + key,
				Status:    StatusPending,
				CreatedAt: created,
			})
		}
	}

	pendingLocations := []struct {
		id, toiletID, slug, name, district, address, by, note string
		lat, lng                                              float64
		photos                                                int
	}{
		{"p1", "h1", "albert-park-gate-wc", "Albert Park Gate WC", "CBD", "Princes St, Auckland 1010", "Ava",
			"Access code after 6pm. Entry near the east gate.", -36.8507, 174.7682, 2},
		{"p2", "h2", "point-chevalier-foreshore-wc", "Point Chevalier Foreshore WC", "Ponsonby", "Harbour View Rd, Point Chevalier 1022", "Liam",
			"Signage is small. Best landmark is the lifeguard hut.", -36.8620, 174.7100, 1},
		{"p3", "h3", "sylvia-park-upper-level-wc", "Sylvia Park Upper Level WC", "Manukau", "286 Mount Wellington Hwy, Auckland 1060", "Mia",
			"Located behind the food court elevators.", -36.9170, 174.8410, 3},
	}
	for i, pl := range pendingLocations {
		created := now.Add(-time.Duration(i+1) * 2 * time.Hour)
		data.Toilets = append(data.Toilets, FixtureToilet{
			ID:          pl.toiletID,
			Slug:        pl.slug,
			Name:        pl.name,
			DistrictID:  districtID(pl.district),
			Address:     pl.address,
			Lat:         pl.lat,
			Lng:         pl.lng,
			AccessNotes: pl.note,
			Status:      StatusHidden,
			CreatedAt:   created,
		})
		data.Submissions = append(data.Submissions, FixtureSubmission{
			ID:          pl.id,
			SubmittedBy: pl.by,
			Name:        pl.name,
			DistrictID:  districtID(pl.district),
			Address:     pl.address,
			Lat:         pl.lat,
			Lng:         pl.lng,
			AccessNotes: pl.note,
			Status:      StatusPending,
			ToiletID:    pl.toiletID,
			CreatedAt:   created,
		})
		for n := 0; n < pl.photos; n++ {
			key := fmt.Sprintf("toilets/demo/%s-%d.jpg", pl.toiletID, n+1)
			data.Photos = append(data.Photos, FixturePhoto{
				ID:        fmt.Sprintf("%s-photo-%d", pl.toiletID, n+1),
				ToiletID:  pl.toiletID,
				Key:       key,
				URL:       demoPhotoBase + "/" + key,
				Status:    StatusPending,
				CreatedAt: created,
			})
		}
	}
	return data
}
