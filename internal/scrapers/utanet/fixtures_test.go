package utanet

const songPageFixture = `<!DOCTYPE html>
<html lang="ja">
<body>
<div class="container">
  <div class="blur-filter row py-3">
    <div class="col-4">
      <img class="img-fluid" src="https://m.media-amazon.com/images/I/lemon.jpg" alt="Lemon">
    </div>
    <div class="col-8">
      <h2 class="ms-2 ms-md-3 kashi-title">Lemon</h2>
      <h3 class="ms-2 ms-md-3"><a href="/artist/12795/"><span itemprop="byArtist name">米津玄師</span></a></h3>
      <p class="ms-2 ms-md-3 mb-0">TBS系 金曜ドラマ「アンナチュラル」&nbsp;主題歌</p>
      <p class="ms-2 ms-md-3 detail mb-0">
        作詞：<a href="/lyricist/21436/">米津玄師</a>
        作曲：<a href="/composer/26416/">米津玄師</a>
        編曲：<a href="/arranger/7310/">米津玄師</a>
        発売日：2018/03/14
        この曲の表示回数：4,240,771回
      </p>
    </div>
  </div>
  <div id="kashi_area" itemprop="text">
    夢ならばどれほどよかったでしょう<br>未だにあなたのことを夢にみる<br><br>忘れた物を取りに帰るように
  </div>
</div>
</body>
</html>`

const sparseSongPageFixture = `<!DOCTYPE html>
<html>
<body>
  <h2 class="ms-2">Untitled demo</h2>
  <div class="blur-filter row py-3">
    <p class="ms-2 ms-md-3 detail mb-0">
      作詞：<a href="/lyricist/1/">someone</a>
      発売日：
    </p>
  </div>
</body>
</html>`

const listingPageFixture = `<!DOCTYPE html>
<html>
<body>
  <table>
    <tr><td><a class="py-2 py-lg-0" href="/song/253460/">Lemon</a></td></tr>
    <tr><td><a class="py-2 py-lg-0" href="/song/242716/">灰色と青</a></td></tr>
    <tr><td><a class="py-2 py-lg-0" href="/song/253460/">Lemon (duplicate row)</a></td></tr>
    <tr><td><a class="py-2 py-lg-0" href="/movie/1/">Not a song</a></td></tr>
    <tr><td><a class="py-2 py-lg-0" href="/song/">Malformed</a></td></tr>
    <tr><td><a class="other" href="/song/999/">Other class</a></td></tr>
  </table>
  <ul class="pagination">
    <li><a class="page-link" href="/artist/12795/0/1/">1</a></li>
    <li><a class="page-link" href="/artist/12795/0/2/">2</a></li>
  </ul>
</body>
</html>`
